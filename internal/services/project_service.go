// internal/services/project_service.go
package services

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/CardiffAirportTV/VEO3StudioMCP/internal/errors"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/storage"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/utils"
)

// exportDir 导出工程文件在数据目录下的归档位置
const exportDir = "exports"

// ProjectService 负责工程快照的导出与导入
type ProjectService struct {
	SessionService *SessionService
	FileStorage    *storage.FileStorage

	logger *utils.Logger
}

// NewProjectService 创建工程服务
func NewProjectService(sessionService *SessionService, fileStorage *storage.FileStorage) *ProjectService {
	return &ProjectService{
		SessionService: sessionService,
		FileStorage:    fileStorage,
		logger:         utils.GetLogger(),
	}
}

// Snapshot 为会话生成一个完整的工程快照，时间戳取调用时刻
func (s *ProjectService) Snapshot(session *Session) *models.ProjectSnapshot {
	duration, style, outputFormat := session.PromptConfig()

	return &models.ProjectSnapshot{
		Prompt:             session.LastPrompt(),
		SelectedCharacters: session.SelectedCharacters(),
		SelectedScene:      session.SelectedScene(),
		DialogueSequence:   session.DialogueSequence(),
		CameraSequence:     session.CameraSequence(),
		ModifiedCharacters: session.ModifiedCharacters(),
		ModifiedScenes:     session.ModifiedScenes(),
		PromptDuration:     duration,
		PromptStyle:        style,
		PromptOutputFormat: outputFormat,
		Generated:          time.Now().UTC().Format(time.RFC3339),
	}
}

// ExportFilename 生成带毫秒时间戳的导出文件名，避免重名
func ExportFilename() string {
	return fmt.Sprintf("cardiff-airport-veo3-project-%d.json", time.Now().UnixMilli())
}

// Export 序列化会话并在数据目录归档一份副本
// 归档失败只记录日志，不影响导出本身
func (s *ProjectService) Export(session *Session) (*models.ProjectSnapshot, string, error) {
	snapshot := s.Snapshot(session)
	filename := ExportFilename()

	if err := s.FileStorage.SaveJSONFile(exportDir, filename, snapshot); err != nil {
		s.logger.Warnf("工程导出归档失败: %s: %v", filename, err)
	}

	return snapshot, filename, nil
}

// Import 解析工程文档并整体恢复会话状态
// 仅在JSON本身不合法时返回解析错误且不触碰现有状态；
// 缺失字段一律回填默认值，三个配置字段的空串也视为缺失
func (s *ProjectService) Import(session *Session, document []byte) ([]View, error) {
	var snapshot models.ProjectSnapshot
	if err := json.Unmarshal(document, &snapshot); err != nil {
		return nil, apperrors.NewParseError("工程文件不是有效的JSON", err)
	}

	if snapshot.PromptDuration == "" {
		snapshot.PromptDuration = DefaultPromptDuration
	}
	if snapshot.PromptStyle == "" {
		snapshot.PromptStyle = DefaultPromptStyle
	}
	if snapshot.PromptOutputFormat == "" {
		snapshot.PromptOutputFormat = DefaultPromptOutputFormat
	}

	modifiedCharacters := make(map[string]*models.Character, len(snapshot.ModifiedCharacters))
	for k, v := range snapshot.ModifiedCharacters {
		modifiedCharacters[k] = v.Clone()
	}
	modifiedScenes := make(map[string]*models.Scene, len(snapshot.ModifiedScenes))
	for k, v := range snapshot.ModifiedScenes {
		modifiedScenes[k] = v.Clone()
	}

	session.mu.Lock()
	session.selectedCharacters = append([]string(nil), snapshot.SelectedCharacters...)
	session.selectedScene = snapshot.SelectedScene
	session.dialogueSequence = append([]models.DialogueLine(nil), snapshot.DialogueSequence...)
	session.cameraSequence = append([]models.CameraShot(nil), snapshot.CameraSequence...)
	session.modifiedCharacters = modifiedCharacters
	session.modifiedScenes = modifiedScenes
	session.promptDuration = snapshot.PromptDuration
	session.promptStyle = snapshot.PromptStyle
	session.promptOutputFormat = snapshot.PromptOutputFormat
	session.lastPrompt = snapshot.Prompt
	session.lastUpdated = time.Now()
	session.mu.Unlock()

	// 导入后所有派生视图整体重建
	return AllViews(), nil
}
