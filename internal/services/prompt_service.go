// internal/services/prompt_service.go
package services

import (
	"fmt"
	"strings"

	apperrors "github.com/CardiffAirportTV/VEO3StudioMCP/internal/errors"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/utils"
)

// PromptHeader 每个生成提示词的固定开头，也用于判定"已生成"状态
const PromptHeader = "Cardiff Airport TV - [@airporttv logo - top right]\n\n"

// PromptService 把会话状态组装成 VEO3 提示词文本
type PromptService struct {
	SessionService *SessionService

	logger *utils.Logger
}

// NewPromptService 创建提示词服务
func NewPromptService(sessionService *SessionService) *PromptService {
	return &PromptService{
		SessionService: sessionService,
		logger:         utils.GetLogger(),
	}
}

// Assemble 按固定的节顺序生成提示词并记录到会话
// 至少需要选中一个角色和一个场景
func (s *PromptService) Assemble(session *Session, toggles models.PromptToggles) (string, []View, error) {
	selected := session.SelectedCharacters()
	sceneName := session.SelectedScene()

	if len(selected) == 0 {
		return "", nil, apperrors.NewValidationError("请至少选择一个角色", nil)
	}
	if sceneName == "" {
		return "", nil, apperrors.NewValidationError("请选择一个场景", nil)
	}

	scene, err := s.SessionService.EffectiveScene(session, sceneName)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString(PromptHeader)

	// 主体：单角色用 SUBJECT，多角色用 ENSEMBLE CAST
	if len(selected) == 1 {
		ch, err := s.SessionService.EffectiveCharacter(session, selected[0])
		if err != nil {
			return "", nil, err
		}
		b.WriteString("SUBJECT: " + ch.Description + "\n\n")
	} else {
		b.WriteString("ENSEMBLE CAST:\n")
		for _, name := range selected {
			ch, err := s.SessionService.EffectiveCharacter(session, name)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(name + ": " + ch.Description + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("CONTEXT: " + scene.Description + "\n\n")

	if lines := session.DialogueSequence(); len(lines) > 0 {
		b.WriteString("DIALOGUE SEQUENCE:\n")
		for _, line := range lines {
			b.WriteString(line.Speaker + ": \"" + line.Text + "\"\n")
		}
		b.WriteString("\n")
	}

	// 镜头：只有填写完整的镜头才进入序列，否则整体回退到默认描述
	if shots := session.EffectiveCameraSequence(); len(shots) > 0 {
		b.WriteString("CAMERA SEQUENCE:\n")
		for i, shot := range shots {
			b.WriteString(fmt.Sprintf("Shot %d: %s %s", i+1, shot.ShotType, shot.Movement))
			if shot.Description != "" {
				b.WriteString(" - " + shot.Description)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("CAMERA: Medium shot with natural movement, professional cinematography\n")
	}

	duration, style, outputFormat := session.PromptConfig()
	b.WriteString("\nDURATION: " + duration + "\n")
	b.WriteString("STYLE: " + style + "\n")
	b.WriteString("OUTPUT: " + outputFormat + "\n")

	if toggles.IncludeWelshAccent {
		for _, name := range selected {
			ch, err := s.SessionService.EffectiveCharacter(session, name)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(name + " voice : " + ch.Voice + "\n")
		}
	}

	if toggles.IncludeEnsembleSupport && len(selected) > 1 {
		b.WriteString("\nENSEMBLE DIRECTION: Balance all characters naturally, ensure clear audio separation between speakers, maintain Cardiff Airport atmosphere throughout\n")
	}

	if toggles.IncludeBroadcastQuality {
		b.WriteString("\nBROADCAST QUALITY: Professional TV production standards, suitable for Cardiff Airport TV broadcast, crisp audio, stable footage\n")
	}

	prompt := b.String()
	session.setLastPrompt(prompt)

	return prompt, []View{ViewDashboard, ViewWorkflow, ViewSummary}, nil
}
