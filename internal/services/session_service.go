// internal/services/session_service.go
package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/CardiffAirportTV/VEO3StudioMCP/internal/errors"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
)

// View 标识一个可能因状态变更而失效的派生视图
// 变更操作返回失效视图集合，由API层决定重算并推送哪些内容
type View string

const (
	ViewGallery       View = "gallery"
	ViewSelection     View = "selection"
	ViewCompatibility View = "compatibility"
	ViewDialogue      View = "dialogue"
	ViewCamera        View = "camera"
	ViewDashboard     View = "dashboard"
	ViewWorkflow      View = "workflow"
	ViewSummary       View = "summary"
)

// AllViews 全量视图集合，导入工程后整体重建
func AllViews() []View {
	return []View{
		ViewGallery, ViewSelection, ViewCompatibility, ViewDialogue,
		ViewCamera, ViewDashboard, ViewWorkflow, ViewSummary,
	}
}

// 提示词配置字段的默认值，导入缺失字段时也用它们回填
const (
	DefaultPromptDuration     = "Exactly 8 seconds"
	DefaultPromptStyle        = "Professional broadcast documentary style"
	DefaultPromptOutputFormat = "High-quality video with synchronized Welsh-accented audio"
)

// Session 一次创作会话的全部可变状态
// 单个会话内的变更由互斥锁串行化，没有并发写者
type Session struct {
	ID string

	mu sync.Mutex

	selectedCharacters []string
	selectedScene      string
	dialogueSequence   []models.DialogueLine
	cameraSequence     []models.CameraShot // 含草稿镜头

	// 覆盖存储：用户编辑写入这里，目录本身只读
	modifiedCharacters map[string]*models.Character
	modifiedScenes     map[string]*models.Scene

	// 每角色的一次性对白选项库存，消费即删除
	dialogueOptions map[string][]string

	promptDuration     string
	promptStyle        string
	promptOutputFormat string

	lastPrompt string

	createdAt   time.Time
	lastUpdated time.Time
}

// SessionService 管理创作会话并执行所有状态变更
type SessionService struct {
	CatalogService *CatalogService

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService 创建会话服务
func NewSessionService(catalogService *CatalogService) *SessionService {
	return &SessionService{
		CatalogService: catalogService,
		sessions:       make(map[string]*Session),
	}
}

// CreateSession 创建一个空白会话
func (s *SessionService) CreateSession() *Session {
	session := &Session{
		ID:                 uuid.NewString(),
		modifiedCharacters: make(map[string]*models.Character),
		modifiedScenes:     make(map[string]*models.Scene),
		dialogueOptions:    make(map[string][]string),
		promptDuration:     DefaultPromptDuration,
		promptStyle:        DefaultPromptStyle,
		promptOutputFormat: DefaultPromptOutputFormat,
		createdAt:          time.Now(),
		lastUpdated:        time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// GetSession 按ID获取会话
func (s *SessionService) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("会话不存在: "+id, nil)
	}
	return session, nil
}

// ----------------------------------------
// 生效值解析（覆盖优先于目录）
// ----------------------------------------

// EffectiveCharacter 解析角色的生效值：有覆盖用覆盖，否则用目录值
// 返回深拷贝，调用方修改结果不会污染覆盖存储或目录
func (s *SessionService) EffectiveCharacter(session *Session, name string) (*models.Character, error) {
	session.mu.Lock()
	override, ok := session.modifiedCharacters[name]
	session.mu.Unlock()
	if ok {
		return override.Clone(), nil
	}

	ch, ok := s.CatalogService.Character(name)
	if !ok {
		return nil, apperrors.NewNotFoundError("角色不存在: "+name, nil)
	}
	return ch.Clone(), nil
}

// EffectiveScene 解析场景的生效值，同样返回深拷贝
func (s *SessionService) EffectiveScene(session *Session, name string) (*models.Scene, error) {
	session.mu.Lock()
	override, ok := session.modifiedScenes[name]
	session.mu.Unlock()
	if ok {
		return override.Clone(), nil
	}

	sc, ok := s.CatalogService.Scene(name)
	if !ok {
		return nil, apperrors.NewNotFoundError("场景不存在: "+name, nil)
	}
	return sc.Clone(), nil
}

// SetCharacterOverride 保存角色编辑
// 以当时的生效值为底本做全量拷贝，再合并修改后的字段，后写覆盖先写
func (s *SessionService) SetCharacterOverride(session *Session, name string, updated models.CharacterEdit) ([]View, error) {
	base, err := s.EffectiveCharacter(session, name)
	if err != nil {
		return nil, err
	}

	merged := base.Clone()
	if updated.Description != nil {
		merged.Description = *updated.Description
	}
	if updated.Voice != nil {
		merged.Voice = *updated.Voice
	}
	if updated.Category != nil {
		merged.Category = *updated.Category
	}
	if updated.Scenes != nil {
		merged.Scenes = append([]string(nil), updated.Scenes...)
	}
	if updated.Dialogue != nil {
		merged.Dialogue = append([]string(nil), updated.Dialogue...)
	}

	session.mu.Lock()
	session.modifiedCharacters[name] = merged
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	return []View{ViewGallery, ViewSelection, ViewCompatibility, ViewDialogue, ViewSummary}, nil
}

// SetSceneOverride 保存场景编辑
func (s *SessionService) SetSceneOverride(session *Session, name string, updated models.SceneEdit) ([]View, error) {
	base, err := s.EffectiveScene(session, name)
	if err != nil {
		return nil, err
	}

	merged := base.Clone()
	if updated.Description != nil {
		merged.Description = *updated.Description
	}
	if updated.Subtitle != nil {
		merged.Subtitle = *updated.Subtitle
	}
	if updated.Atmosphere != nil {
		merged.Atmosphere = *updated.Atmosphere
	}

	session.mu.Lock()
	session.modifiedScenes[name] = merged
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	return []View{ViewGallery, ViewCompatibility, ViewSummary}, nil
}

// ListDistinctCategories 目录与覆盖中出现过的全部类别（排序去重）
// 覆盖可能引入目录中没有的新类别，过滤器必须能提供它们
func (s *SessionService) ListDistinctCategories(session *Session) []string {
	seen := make(map[string]bool)

	for _, name := range s.CatalogService.CharacterOrder() {
		if ch, ok := s.CatalogService.Character(name); ok && ch.Category != "" {
			seen[ch.Category] = true
		}
	}

	session.mu.Lock()
	for _, ch := range session.modifiedCharacters {
		if ch.Category != "" {
			seen[ch.Category] = true
		}
	}
	session.mu.Unlock()

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return categories
}

// FilterCharacters 按名称子串（不区分大小写）和类别过滤角色键
// 结果保持目录迭代顺序；空条件表示不约束
func (s *SessionService) FilterCharacters(session *Session, search, category string) []string {
	search = strings.ToLower(search)

	var matched []string
	for _, name := range s.CatalogService.CharacterOrder() {
		ch, err := s.EffectiveCharacter(session, name)
		if err != nil {
			continue
		}

		if search != "" && !strings.Contains(strings.ToLower(name), search) {
			continue
		}
		if category != "" && ch.Category != category {
			continue
		}

		matched = append(matched, name)
	}

	return matched
}

// ----------------------------------------
// 选择与构成状态的变更操作
// ----------------------------------------

// ToggleCharacter 切换角色选中状态
// 未选中则追加到末尾，已选中则移除并保持其余条目的相对顺序
func (s *SessionService) ToggleCharacter(session *Session, name string) ([]View, error) {
	if _, err := s.EffectiveCharacter(session, name); err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	found := -1
	for i, n := range session.selectedCharacters {
		if n == name {
			found = i
			break
		}
	}

	if found >= 0 {
		session.selectedCharacters = append(
			session.selectedCharacters[:found],
			session.selectedCharacters[found+1:]...)
	} else {
		session.selectedCharacters = append(session.selectedCharacters, name)
	}
	session.lastUpdated = time.Now()

	return []View{ViewSelection, ViewCompatibility, ViewDialogue, ViewDashboard, ViewWorkflow, ViewSummary}, nil
}

// SelectAllCharacters 把过滤结果中的角色全部加入选择（保持已有顺序，追加未选中的）
func (s *SessionService) SelectAllCharacters(session *Session, search, category string) []View {
	visible := s.FilterCharacters(session, search, category)

	session.mu.Lock()
	defer session.mu.Unlock()

	selected := make(map[string]bool, len(session.selectedCharacters))
	for _, n := range session.selectedCharacters {
		selected[n] = true
	}
	for _, n := range visible {
		if !selected[n] {
			session.selectedCharacters = append(session.selectedCharacters, n)
			selected[n] = true
		}
	}
	session.lastUpdated = time.Now()

	return []View{ViewSelection, ViewCompatibility, ViewDialogue, ViewDashboard, ViewWorkflow, ViewSummary}
}

// ClearCharacterSelection 清空角色选择
func (s *SessionService) ClearCharacterSelection(session *Session) []View {
	session.mu.Lock()
	session.selectedCharacters = nil
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	return []View{ViewSelection, ViewCompatibility, ViewDialogue, ViewDashboard, ViewWorkflow, ViewSummary}
}

// SelectScene 选择场景（至多一个，重复选择直接替换）
func (s *SessionService) SelectScene(session *Session, name string) ([]View, error) {
	if _, err := s.EffectiveScene(session, name); err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.selectedScene = name
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	return []View{ViewCompatibility, ViewWorkflow, ViewSummary}, nil
}

// AppendDialogueLine 追加一行对白
// speaker 必须非空且可解析，text 去除首尾空白后必须非空，否则返回验证错误
// 不要求 speaker 当前处于选中状态；之后取消选择也不回收已有对白行
func (s *SessionService) AppendDialogueLine(session *Session, speaker, text string) ([]View, error) {
	if speaker == "" {
		return nil, apperrors.NewValidationError("请先选择说话的角色", nil)
	}
	if _, err := s.EffectiveCharacter(session, speaker); err != nil {
		return nil, apperrors.NewValidationError("说话角色无法解析: "+speaker, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("对白内容不能为空", nil)
	}

	session.mu.Lock()
	session.dialogueSequence = append(session.dialogueSequence, models.DialogueLine{
		Speaker: speaker,
		Text:    text,
	})
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	return []View{ViewDialogue, ViewDashboard, ViewWorkflow, ViewSummary}, nil
}

// EditDialogueLineAt 原地修改指定下标的对白文本
// 下标越界时静默忽略；空文本同样忽略（与前端取消编辑的行为一致）
func (s *SessionService) EditDialogueLineAt(session *Session, index int, text string) []View {
	text = strings.TrimSpace(text)

	session.mu.Lock()
	defer session.mu.Unlock()

	if index < 0 || index >= len(session.dialogueSequence) || text == "" {
		return nil
	}

	session.dialogueSequence[index].Text = text
	session.lastUpdated = time.Now()

	return []View{ViewDialogue, ViewSummary}
}

// RemoveDialogueLineAt 删除指定下标的对白行，越界时静默忽略
func (s *SessionService) RemoveDialogueLineAt(session *Session, index int) []View {
	session.mu.Lock()
	defer session.mu.Unlock()

	if index < 0 || index >= len(session.dialogueSequence) {
		return nil
	}

	session.dialogueSequence = append(
		session.dialogueSequence[:index],
		session.dialogueSequence[index+1:]...)
	session.lastUpdated = time.Now()

	return []View{ViewDialogue, ViewDashboard, ViewWorkflow, ViewSummary}
}

// StartMultiCharacterDialogue 用前两个选中角色的问候语重置对白序列
func (s *SessionService) StartMultiCharacterDialogue(session *Session) ([]View, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if len(session.selectedCharacters) < 2 {
		return nil, apperrors.NewValidationError("多角色场景至少需要选择2个角色", nil)
	}

	session.dialogueSequence = []models.DialogueLine{
		{Speaker: session.selectedCharacters[0], Text: "Welcome to Cardiff Airport!"},
		{Speaker: session.selectedCharacters[1], Text: "Thank you, lovely to be here!"},
	}
	session.lastUpdated = time.Now()

	return []View{ViewDialogue, ViewDashboard, ViewWorkflow, ViewSummary}, nil
}

// UpsertCameraShotAt 写入指定下标的镜头草稿
// 下标等于或超过当前长度时追加；类型/运镜留空表示草稿，不进入生效序列
func (s *SessionService) UpsertCameraShotAt(session *Session, index int, shot models.CameraShot) ([]View, error) {
	if !models.ValidShotType(shot.ShotType) {
		return nil, apperrors.NewValidationError("未知的镜头类型: "+shot.ShotType, nil)
	}
	if !models.ValidMovement(shot.Movement) {
		return nil, apperrors.NewValidationError("未知的运镜方式: "+shot.Movement, nil)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if index < 0 {
		return nil, apperrors.NewValidationError("镜头下标不能为负数", nil)
	}

	if index >= len(session.cameraSequence) {
		session.cameraSequence = append(session.cameraSequence, shot)
	} else {
		session.cameraSequence[index] = shot
	}
	session.lastUpdated = time.Now()

	return []View{ViewCamera, ViewWorkflow, ViewSummary}, nil
}

// RemoveCameraShotAt 删除指定下标的镜头，越界时静默忽略
func (s *SessionService) RemoveCameraShotAt(session *Session, index int) []View {
	session.mu.Lock()
	defer session.mu.Unlock()

	if index < 0 || index >= len(session.cameraSequence) {
		return nil
	}

	session.cameraSequence = append(
		session.cameraSequence[:index],
		session.cameraSequence[index+1:]...)
	session.lastUpdated = time.Now()

	return []View{ViewCamera, ViewWorkflow, ViewSummary}
}

// 预置的镜头模板
var cameraTemplates = map[string][]models.CameraShot{
	"ensemble": {
		{ShotType: "wide", Movement: "static", Description: "Establishing shot"},
		{ShotType: "medium", Movement: "pan", Description: "Character introductions"},
		{ShotType: "close-up", Movement: "static", Description: "Key character focus"},
	},
	"dialogue": {
		{ShotType: "medium", Movement: "static", Description: "Speaker close-up"},
		{ShotType: "close-up", Movement: "static", Description: "Reaction shot"},
	},
	"interview": {
		{ShotType: "medium", Movement: "zoom", Description: "Interview setup"},
		{ShotType: "close-up", Movement: "static", Description: "Subject focus"},
	},
}

// LoadCameraTemplate 用预置模板整体替换镜头序列
func (s *SessionService) LoadCameraTemplate(session *Session, name string) ([]View, error) {
	template, ok := cameraTemplates[name]
	if !ok {
		return nil, apperrors.NewNotFoundError("镜头模板不存在: "+name, nil)
	}

	session.mu.Lock()
	session.cameraSequence = append([]models.CameraShot(nil), template...)
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	return []View{ViewCamera, ViewWorkflow, ViewSummary}, nil
}

// SetPromptConfig 更新三个提示词配置字段（空串表示不修改对应字段）
func (s *SessionService) SetPromptConfig(session *Session, duration, style, outputFormat string) []View {
	session.mu.Lock()
	defer session.mu.Unlock()

	if duration != "" {
		session.promptDuration = duration
	}
	if style != "" {
		session.promptStyle = style
	}
	if outputFormat != "" {
		session.promptOutputFormat = outputFormat
	}
	session.lastUpdated = time.Now()

	return []View{ViewSummary}
}

// ----------------------------------------
// 兼容性检查
// ----------------------------------------

// CheckCompatibility 逐个选中角色判定其与所选场景的兼容性
// 未选场景或未选角色时返回明确的"无可检查"状态而不是空结果
func (s *SessionService) CheckCompatibility(session *Session) *models.CompatibilityReport {
	session.mu.Lock()
	scene := session.selectedScene
	selected := append([]string(nil), session.selectedCharacters...)
	session.mu.Unlock()

	if scene == "" || len(selected) == 0 {
		return &models.CompatibilityReport{
			Ready:   false,
			Message: "Select characters and a scene to check compatibility",
		}
	}

	report := &models.CompatibilityReport{Ready: true}
	for _, name := range selected {
		ch, err := s.EffectiveCharacter(session, name)
		compatible := err == nil && ch.CompatibleWith(scene)
		report.Results = append(report.Results, models.CompatibilityResult{
			Character:  name,
			Scene:      scene,
			Compatible: compatible,
		})
	}

	return report
}

// ----------------------------------------
// 只读访问（API层与其他服务使用）
// ----------------------------------------

// SelectedCharacters 当前选中的角色键（选择顺序）
func (session *Session) SelectedCharacters() []string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return append([]string(nil), session.selectedCharacters...)
}

// SelectedScene 当前选中的场景键，未选择时为空串
func (session *Session) SelectedScene() string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.selectedScene
}

// DialogueSequence 对白序列的拷贝
func (session *Session) DialogueSequence() []models.DialogueLine {
	session.mu.Lock()
	defer session.mu.Unlock()
	return append([]models.DialogueLine(nil), session.dialogueSequence...)
}

// CameraSequence 镜头序列的拷贝（含草稿镜头）
func (session *Session) CameraSequence() []models.CameraShot {
	session.mu.Lock()
	defer session.mu.Unlock()
	return append([]models.CameraShot(nil), session.cameraSequence...)
}

// EffectiveCameraSequence 生效的镜头序列：仅保留类型和运镜都已填写的镜头
func (session *Session) EffectiveCameraSequence() []models.CameraShot {
	session.mu.Lock()
	defer session.mu.Unlock()

	var effective []models.CameraShot
	for _, shot := range session.cameraSequence {
		if shot.Complete() {
			effective = append(effective, shot)
		}
	}
	return effective
}

// PromptConfig 三个提示词配置字段
func (session *Session) PromptConfig() (duration, style, outputFormat string) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.promptDuration, session.promptStyle, session.promptOutputFormat
}

// LastPrompt 最近一次生成的提示词文本
func (session *Session) LastPrompt() string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.lastPrompt
}

// setLastPrompt 记录最近一次生成的提示词
func (session *Session) setLastPrompt(prompt string) {
	session.mu.Lock()
	session.lastPrompt = prompt
	session.lastUpdated = time.Now()
	session.mu.Unlock()
}

// ModifiedCharacters 覆盖存储中的角色副本
func (session *Session) ModifiedCharacters() map[string]*models.Character {
	session.mu.Lock()
	defer session.mu.Unlock()

	out := make(map[string]*models.Character, len(session.modifiedCharacters))
	for k, v := range session.modifiedCharacters {
		out[k] = v.Clone()
	}
	return out
}

// ModifiedScenes 覆盖存储中的场景副本
func (session *Session) ModifiedScenes() map[string]*models.Scene {
	session.mu.Lock()
	defer session.mu.Unlock()

	out := make(map[string]*models.Scene, len(session.modifiedScenes))
	for k, v := range session.modifiedScenes {
		out[k] = v.Clone()
	}
	return out
}
