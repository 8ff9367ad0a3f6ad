// internal/services/stats_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
)

// StatsService 计算仪表盘统计、工作流状态与生成器页汇总
type StatsService struct {
	CatalogService *CatalogService
	SessionService *SessionService
}

// NewStatsService 创建统计服务
func NewStatsService(catalogService *CatalogService, sessionService *SessionService) *StatsService {
	return &StatsService{
		CatalogService: catalogService,
		SessionService: sessionService,
	}
}

// DashboardStats 仪表盘四项计数
func (s *StatsService) DashboardStats(session *Session) *models.DashboardStats {
	return &models.DashboardStats{
		SelectedCharacters: len(session.SelectedCharacters()),
		DialogueLines:      len(session.DialogueSequence()),
		TotalCharacters:    s.CatalogService.CharacterCount(),
		TotalScenes:        s.CatalogService.SceneCount(),
	}
}

// WorkflowStatus 五个工作流步骤的完成标记
// 镜头步骤按原始序列计数（草稿也算配置过），生成步骤看最近提示词是否已产出
func (s *StatsService) WorkflowStatus(session *Session) *models.WorkflowStatus {
	return &models.WorkflowStatus{
		Characters: len(session.SelectedCharacters()) > 0,
		Scene:      session.SelectedScene() != "",
		Dialogue:   len(session.DialogueSequence()) > 0,
		Camera:     len(session.CameraSequence()) > 0,
		Generator:  strings.Contains(session.LastPrompt(), PromptHeader),
	}
}

// GeneratorSummary 生成器页的汇总文案
func (s *StatsService) GeneratorSummary(session *Session) *models.GeneratorSummary {
	duration, style, outputFormat := session.PromptConfig()

	scene := session.SelectedScene()
	if scene == "" {
		scene = "None selected"
	}

	return &models.GeneratorSummary{
		Characters:   summarizeCharacters(session.SelectedCharacters()),
		Scene:        scene,
		Dialogue:     summarizeDialogue(session.DialogueSequence()),
		Camera:       summarizeCamera(session.CameraSequence()),
		Duration:     duration,
		Style:        style,
		OutputFormat: outputFormat,
	}
}

func summarizeCharacters(selected []string) string {
	switch {
	case len(selected) == 0:
		return "None selected"
	case len(selected) == 1:
		return selected[0]
	case len(selected) <= 3:
		return strings.Join(selected, ", ")
	default:
		return fmt.Sprintf("%d characters selected", len(selected))
	}
}

func summarizeDialogue(lines []models.DialogueLine) string {
	if len(lines) == 0 {
		return "No dialogue composed"
	}
	return fmt.Sprintf("%d dialogue lines", len(lines))
}

func summarizeCamera(shots []models.CameraShot) string {
	if len(shots) == 0 {
		return "No shots configured"
	}
	return fmt.Sprintf("%d camera shots", len(shots))
}
