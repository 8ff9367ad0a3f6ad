// internal/api/handlers.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/CardiffAirportTV/VEO3StudioMCP/internal/errors"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/services"
)

// Handler 处理API请求
type Handler struct {
	// 核心服务
	CatalogService  *services.CatalogService  // 目录服务
	SessionService  *services.SessionService  // 会话服务
	DialogueService *services.DialogueService // 对白服务
	PromptService   *services.PromptService   // 提示词服务
	ProjectService  *services.ProjectService  // 工程服务
	StatsService    *services.StatsService    // 统计服务
	ConfigService   *services.ConfigService   // 配置服务
	Response        *ResponseHelper           // 响应助手
}

// NewHandler 创建API处理器
func NewHandler(
	catalogService *services.CatalogService,
	sessionService *services.SessionService,
	dialogueService *services.DialogueService,
	promptService *services.PromptService,
	projectService *services.ProjectService,
	statsService *services.StatsService,
	configService *services.ConfigService) *Handler {

	return &Handler{
		CatalogService:  catalogService,
		SessionService:  sessionService,
		DialogueService: dialogueService,
		PromptService:   promptService,
		ProjectService:  projectService,
		StatsService:    statsService,
		ConfigService:   configService,
		Response:        NewResponseHelper(),
	}
}

// AddDialogueLineRequest 追加对白行的请求结构
type AddDialogueLineRequest struct {
	Speaker string `json:"speaker"` // 说话角色键
	Text    string `json:"text"`    // 对白内容
}

// EditDialogueLineRequest 修改对白行的请求结构
type EditDialogueLineRequest struct {
	Text string `json:"text"` // 新的对白内容
}

// PromptConfigRequest 更新提示词配置的请求结构
type PromptConfigRequest struct {
	Duration     string `json:"duration"`      // 时长
	Style        string `json:"style"`         // 风格
	OutputFormat string `json:"output_format"` // 输出格式
}

// GeneratePromptRequest 生成提示词的请求结构
type GeneratePromptRequest struct {
	IncludeWelshAccent      *bool `json:"includeWelshAccent"`      // 口音说明开关
	IncludeEnsembleSupport  *bool `json:"includeEnsembleSupport"`  // 群像指导开关
	IncludeBroadcastQuality *bool `json:"includeBroadcastQuality"` // 广播质量开关
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ------------------------------------------------
// 通用辅助
// ------------------------------------------------

// respondServiceError 把服务层错误映射为对应的HTTP错误响应
func (h *Handler) respondServiceError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidationError(err):
		h.Response.Error(c, http.StatusBadRequest, ErrorValidation, err.Error())
	case apperrors.IsNotFoundError(err):
		h.Response.Error(c, http.StatusNotFound, ErrorNotFound, err.Error())
	case apperrors.IsParseError(err):
		h.Response.Error(c, http.StatusBadRequest, ErrorProjectParseFailed, err.Error())
	case apperrors.IsLoadFailureError(err):
		h.Response.Error(c, http.StatusServiceUnavailable, ErrorCatalogLoadFailed, err.Error())
	default:
		h.Response.InternalError(c, err.Error())
	}
}

// getSession 解析路径中的会话ID
func (h *Handler) getSession(c *gin.Context) (*services.Session, bool) {
	session, err := h.SessionService.GetSession(c.Param("id"))
	if err != nil {
		h.Response.NotFound(c, "会话", err.Error())
		return nil, false
	}
	return session, true
}

// requireCatalog 目录未加载时，下游功能整体不可用
func (h *Handler) requireCatalog(c *gin.Context) bool {
	if !h.CatalogService.Loaded() {
		details := ""
		if err := h.CatalogService.LastError(); err != nil {
			details = err.Error()
		}
		h.Response.ServiceUnavailable(c, "参考数据尚未加载，请先重试加载", details)
		return false
	}
	return true
}

// pushViews 重算失效视图并推送给订阅该会话的客户端
func (h *Handler) pushViews(session *services.Session, views []services.View) {
	if len(views) == 0 {
		return
	}

	payload := make(map[string]interface{}, len(views))
	for _, view := range views {
		switch view {
		case services.ViewSelection:
			payload[string(view)] = session.SelectedCharacters()
		case services.ViewCompatibility:
			payload[string(view)] = h.SessionService.CheckCompatibility(session)
		case services.ViewDialogue:
			payload[string(view)] = session.DialogueSequence()
		case services.ViewCamera:
			payload[string(view)] = session.CameraSequence()
		case services.ViewDashboard:
			payload[string(view)] = h.StatsService.DashboardStats(session)
		case services.ViewWorkflow:
			payload[string(view)] = h.StatsService.WorkflowStatus(session)
		case services.ViewSummary:
			payload[string(view)] = h.StatsService.GeneratorSummary(session)
		case services.ViewGallery:
			payload[string(view)] = h.buildGallery(session, "", "")
		}
	}

	wsManager.BroadcastToSession(session.ID, map[string]interface{}{
		"type":      "views_updated",
		"views":     payload,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// galleryEntry 画廊中的一项：目录键加生效值
type galleryEntry struct {
	Name      string            `json:"name"`
	Character *models.Character `json:"character"`
	Selected  bool              `json:"selected"`
	Modified  bool              `json:"modified"`
}

// buildGallery 组装过滤后的角色画廊（生效值）
func (h *Handler) buildGallery(session *services.Session, search, category string) []galleryEntry {
	selected := make(map[string]bool)
	for _, name := range session.SelectedCharacters() {
		selected[name] = true
	}
	modified := session.ModifiedCharacters()

	names := h.SessionService.FilterCharacters(session, search, category)
	gallery := make([]galleryEntry, 0, len(names))
	for _, name := range names {
		ch, err := h.SessionService.EffectiveCharacter(session, name)
		if err != nil {
			continue
		}
		_, isModified := modified[name]
		gallery = append(gallery, galleryEntry{
			Name:      name,
			Character: ch,
			Selected:  selected[name],
			Modified:  isModified,
		})
	}
	return gallery
}

// ========================================
// 会话管理处理器
// ========================================

// CreateSession 创建新的创作会话
func (h *Handler) CreateSession(c *gin.Context) {
	session := h.SessionService.CreateSession()
	h.Response.Created(c, gin.H{"session_id": session.ID}, "会话创建成功")
}

// GetSessionState 获取会话的完整状态快照与派生视图
func (h *Handler) GetSessionState(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	h.Response.Success(c, gin.H{
		"snapshot":      h.ProjectService.Snapshot(session),
		"compatibility": h.SessionService.CheckCompatibility(session),
		"stats":         h.StatsService.DashboardStats(session),
		"workflow":      h.StatsService.WorkflowStatus(session),
		"summary":       h.StatsService.GeneratorSummary(session),
	})
}

// ========================================
// 角色画廊与选择处理器
// ========================================

// GetCharacterGallery 获取过滤后的角色画廊
func (h *Handler) GetCharacterGallery(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	search := c.Query("search")
	category := c.Query("category")

	h.Response.Success(c, gin.H{
		"characters": h.buildGallery(session, search, category),
		"categories": h.SessionService.ListDistinctCategories(session),
	})
}

// GetCategories 获取全部角色类别（含覆盖引入的新类别）
func (h *Handler) GetCategories(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	h.Response.Success(c, h.SessionService.ListDistinctCategories(session))
}

// ToggleCharacter 切换角色选中状态
func (h *Handler) ToggleCharacter(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	views, err := h.SessionService.ToggleCharacter(session, c.Param("name"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, gin.H{"selected_characters": session.SelectedCharacters()})
}

// SelectAllCharacters 把当前过滤结果全部加入选择
func (h *Handler) SelectAllCharacters(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	views := h.SessionService.SelectAllCharacters(session, c.Query("search"), c.Query("category"))

	h.pushViews(session, views)
	h.Response.Success(c, gin.H{"selected_characters": session.SelectedCharacters()})
}

// ClearCharacterSelection 清空角色选择
func (h *Handler) ClearCharacterSelection(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	views := h.SessionService.ClearCharacterSelection(session)

	h.pushViews(session, views)
	h.Response.Success(c, gin.H{"selected_characters": session.SelectedCharacters()})
}

// UpdateCharacter 保存角色编辑（写入覆盖存储，目录不变）
func (h *Handler) UpdateCharacter(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	var edit models.CharacterEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		h.Response.BadRequest(c, "无效的角色编辑请求", err.Error())
		return
	}

	name := c.Param("name")
	views, err := h.SessionService.SetCharacterOverride(session, name, edit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	effective, _ := h.SessionService.EffectiveCharacter(session, name)
	h.pushViews(session, views)
	h.Response.Success(c, effective, "角色编辑已保存")
}

// ========================================
// 场景处理器
// ========================================

// GetScenes 获取场景目录（生效值，目录迭代顺序）
func (h *Handler) GetScenes(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	type sceneEntry struct {
		Name     string        `json:"name"`
		Scene    *models.Scene `json:"scene"`
		Selected bool          `json:"selected"`
	}

	selectedScene := session.SelectedScene()
	scenes := make([]sceneEntry, 0, h.CatalogService.SceneCount())
	for _, name := range h.CatalogService.SceneOrder() {
		sc, err := h.SessionService.EffectiveScene(session, name)
		if err != nil {
			continue
		}
		scenes = append(scenes, sceneEntry{
			Name:     name,
			Scene:    sc,
			Selected: name == selectedScene,
		})
	}

	h.Response.Success(c, scenes)
}

// SelectScene 选择场景
func (h *Handler) SelectScene(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	views, err := h.SessionService.SelectScene(session, c.Param("name"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, gin.H{"selected_scene": session.SelectedScene()})
}

// UpdateScene 保存场景编辑（写入覆盖存储，目录不变）
func (h *Handler) UpdateScene(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	var edit models.SceneEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		h.Response.BadRequest(c, "无效的场景编辑请求", err.Error())
		return
	}

	name := c.Param("name")
	views, err := h.SessionService.SetSceneOverride(session, name, edit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	effective, _ := h.SessionService.EffectiveScene(session, name)
	h.pushViews(session, views)
	h.Response.Success(c, effective, "场景编辑已保存")
}

// GetCompatibility 检查选中角色与所选场景的兼容性
func (h *Handler) GetCompatibility(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	h.Response.Success(c, h.SessionService.CheckCompatibility(session))
}

// ========================================
// 对白处理器
// ========================================

// AddDialogueLine 追加一行对白
func (h *Handler) AddDialogueLine(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	var req AddDialogueLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的对白请求", err.Error())
		return
	}

	views, err := h.SessionService.AppendDialogueLine(session, req.Speaker, req.Text)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, session.DialogueSequence())
}

// EditDialogueLine 修改指定下标的对白文本
func (h *Handler) EditDialogueLine(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.BadRequest(c, "无效的对白下标", err.Error())
		return
	}

	var req EditDialogueLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的对白请求", err.Error())
		return
	}

	views := h.SessionService.EditDialogueLineAt(session, index, req.Text)

	h.pushViews(session, views)
	h.Response.Success(c, session.DialogueSequence())
}

// RemoveDialogueLine 删除指定下标的对白行
func (h *Handler) RemoveDialogueLine(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.BadRequest(c, "无效的对白下标", err.Error())
		return
	}

	views := h.SessionService.RemoveDialogueLineAt(session, index)

	h.pushViews(session, views)
	h.Response.Success(c, session.DialogueSequence())
}

// StartMultiCharacterDialogue 用选中角色的问候语初始化多角色对白
func (h *Handler) StartMultiCharacterDialogue(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	views, err := h.SessionService.StartMultiCharacterDialogue(session)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, session.DialogueSequence())
}

// GetDialogueOptions 加载角色的对白选项库存（幂等）
func (h *Handler) GetDialogueOptions(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	options, err := h.DialogueService.LoadOptionsFor(session, c.Param("name"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.Response.Success(c, gin.H{"options": options})
}

// ConsumeDialogueOption 消费一条对白选项并追加为对白行
func (h *Handler) ConsumeDialogueOption(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.BadRequest(c, "无效的选项下标", err.Error())
		return
	}

	name := c.Param("name")
	text, err := h.DialogueService.ConsumeOption(session, name, index)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	views, err := h.SessionService.AppendDialogueLine(session, name, text)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, gin.H{
		"dialogue_sequence": session.DialogueSequence(),
		"options":           h.DialogueService.OptionsFor(session, name),
	})
}

// ========================================
// 镜头处理器
// ========================================

// UpsertCameraShot 写入指定下标的镜头
func (h *Handler) UpsertCameraShot(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.BadRequest(c, "无效的镜头下标", err.Error())
		return
	}

	var shot models.CameraShot
	if err := c.ShouldBindJSON(&shot); err != nil {
		h.Response.BadRequest(c, "无效的镜头请求", err.Error())
		return
	}

	views, err := h.SessionService.UpsertCameraShotAt(session, index, shot)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, session.CameraSequence())
}

// RemoveCameraShot 删除指定下标的镜头
func (h *Handler) RemoveCameraShot(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.BadRequest(c, "无效的镜头下标", err.Error())
		return
	}

	views := h.SessionService.RemoveCameraShotAt(session, index)

	h.pushViews(session, views)
	h.Response.Success(c, session.CameraSequence())
}

// LoadCameraTemplate 用预置模板替换镜头序列
func (h *Handler) LoadCameraTemplate(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	views, err := h.SessionService.LoadCameraTemplate(session, c.Param("template"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, session.CameraSequence())
}

// GetCameraOptions 获取可选的镜头类型与运镜方式
func (h *Handler) GetCameraOptions(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"shot_types": models.ShotTypes,
		"movements":  models.Movements,
	})
}

// ========================================
// 提示词处理器
// ========================================

// UpdatePromptConfig 更新时长/风格/输出格式
func (h *Handler) UpdatePromptConfig(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	var req PromptConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的配置请求", err.Error())
		return
	}

	views := h.SessionService.SetPromptConfig(session, req.Duration, req.Style, req.OutputFormat)

	duration, style, outputFormat := session.PromptConfig()
	h.pushViews(session, views)
	h.Response.Success(c, gin.H{
		"duration":      duration,
		"style":         style,
		"output_format": outputFormat,
	})
}

// GeneratePrompt 组装VEO3提示词
func (h *Handler) GeneratePrompt(c *gin.Context) {
	if !h.requireCatalog(c) {
		return
	}
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	toggles := models.DefaultPromptToggles()
	var req GeneratePromptRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if req.IncludeWelshAccent != nil {
			toggles.IncludeWelshAccent = *req.IncludeWelshAccent
		}
		if req.IncludeEnsembleSupport != nil {
			toggles.IncludeEnsembleSupport = *req.IncludeEnsembleSupport
		}
		if req.IncludeBroadcastQuality != nil {
			toggles.IncludeBroadcastQuality = *req.IncludeBroadcastQuality
		}
	}

	prompt, views, err := h.PromptService.Assemble(session, toggles)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, gin.H{"prompt": prompt})
}

// GetPrompt 获取最近一次生成的提示词
func (h *Handler) GetPrompt(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	h.Response.Success(c, gin.H{"prompt": session.LastPrompt()})
}

// ========================================
// 工程导入导出处理器
// ========================================

// ExportProject 导出工程快照为JSON下载
func (h *Handler) ExportProject(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	snapshot, filename, err := h.ProjectService.Export(session)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, err.Error())
		return
	}

	content, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, err.Error())
		return
	}

	h.Response.DownloadResponse(c, content, filename, "application/json")
}

// ImportProject 导入工程文件并整体恢复会话状态
func (h *Handler) ImportProject(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	document, err := h.readImportDocument(c)
	if err != nil {
		h.Response.BadRequest(c, "读取工程文件失败", err.Error())
		return
	}

	views, err := h.ProjectService.Import(session, document)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.pushViews(session, views)
	h.Response.Success(c, h.ProjectService.Snapshot(session), "工程导入成功")
}

// readImportDocument 支持multipart上传和裸JSON两种方式提交工程文件
func (h *Handler) readImportDocument(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return io.ReadAll(src)
	}

	return io.ReadAll(c.Request.Body)
}

// ========================================
// 统计与状态处理器
// ========================================

// GetDashboardStats 仪表盘统计
func (h *Handler) GetDashboardStats(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}
	h.Response.Success(c, h.StatsService.DashboardStats(session))
}

// GetWorkflowStatus 工作流步骤状态
func (h *Handler) GetWorkflowStatus(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}
	h.Response.Success(c, h.StatsService.WorkflowStatus(session))
}

// GetGeneratorSummary 生成器页汇总
func (h *Handler) GetGeneratorSummary(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}
	h.Response.Success(c, h.StatsService.GeneratorSummary(session))
}

// ========================================
// 设置处理器
// ========================================

// UpdateDataSourcesRequest 更新数据来源的请求结构
type UpdateDataSourcesRequest struct {
	CharactersSource string `json:"characters_source"` // 角色目录来源
	ScenesSource     string `json:"scenes_source"`     // 场景目录来源
	DialoguesSource  string `json:"dialogues_source"`  // 对白文件来源
}

// GetSettings 获取当前配置
func (h *Handler) GetSettings(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"settings":       h.ConfigService.GetSettings(),
		"change_history": h.ConfigService.ChangeHistory(),
	})
}

// UpdateDataSources 更新参考数据来源
// 只更新来源配置，已加载的目录需要调用重新加载才会切换
func (h *Handler) UpdateDataSources(c *gin.Context) {
	var req UpdateDataSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的设置请求", err.Error())
		return
	}

	if err := h.ConfigService.UpdateDataSources(req.CharactersSource, req.ScenesSource, req.DialoguesSource); err != nil {
		h.Response.InternalError(c, "更新数据来源失败", err.Error())
		return
	}

	h.CatalogService.UpdateSources(req.CharactersSource, req.ScenesSource)

	h.Response.Success(c, h.ConfigService.GetSettings(), "数据来源已更新")
}

// ========================================
// 参考数据处理器
// ========================================

// ReloadData 重新加载两份参考数据目录
func (h *Handler) ReloadData(c *gin.Context) {
	if err := h.CatalogService.LoadData(c.Request.Context()); err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.Response.Success(c, gin.H{
		"characters": h.CatalogService.CharacterCount(),
		"scenes":     h.CatalogService.SceneCount(),
	}, "参考数据加载成功")
}

// GetDataStatus 参考数据加载状态
func (h *Handler) GetDataStatus(c *gin.Context) {
	status := gin.H{
		"loaded":     h.CatalogService.Loaded(),
		"characters": h.CatalogService.CharacterCount(),
		"scenes":     h.CatalogService.SceneCount(),
	}
	if err := h.CatalogService.LastError(); err != nil {
		status["last_error"] = err.Error()
	}

	h.Response.Success(c, status)
}

// ========================================
// WebSocket 处理器
// ========================================

// SessionWebSocket 订阅会话的视图更新推送
func (h *Handler) SessionWebSocket(c *gin.Context) {
	session, ok := h.getSession(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Response.InternalError(c, "WebSocket升级失败", err.Error())
		return
	}

	client := &WebSocketClient{
		conn:      conn,
		sessionID: session.ID,
		send:      make(chan []byte, 64),
		lastPing:  time.Now(),
		createdAt: time.Now(),
	}

	wsManager.register <- client

	go handleWebSocketWrites(client)
	go handleWebSocketReads(client)
}

// GetWebSocketStatus 获取 WebSocket 连接状态（调试用）
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	status := wsManager.GetStatus()
	status["timestamp"] = time.Now().Format(time.RFC3339)

	c.JSON(http.StatusOK, status)
}
