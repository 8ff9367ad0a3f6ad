// internal/services/dialogue_service.go
package services

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/CardiffAirportTV/VEO3StudioMCP/internal/errors"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/utils"
)

// DialogueService 管理每个角色的一次性对白选项库存
// 选项从外部文本文件加载，文件不可用时回退到角色自带的对白列表
type DialogueService struct {
	SessionService *SessionService

	// 对白文件所在的本地目录或HTTP基础地址
	source string

	httpClient *http.Client
	logger     *utils.Logger
}

// NewDialogueService 创建对白服务
func NewDialogueService(sessionService *SessionService, source string) *DialogueService {
	return &DialogueService{
		SessionService: sessionService,
		source:         source,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         utils.GetLogger(),
	}
}

// dialogueFileName 角色名转对白文件名：小写并去掉所有空白字符
func dialogueFileName(characterName string) string {
	name := strings.ToLower(characterName)
	name = strings.Join(strings.Fields(name), "")
	return name + ".txt"
}

// LoadOptionsFor 加载角色的对白选项到会话库存
// 幂等：库存中已有该角色的条目（即使为空）时不会重新加载，
// 这样已部分消费的库存不会被刷新回满
func (s *DialogueService) LoadOptionsFor(session *Session, characterName string) ([]string, error) {
	ch, err := s.SessionService.EffectiveCharacter(session, characterName)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if options, ok := session.dialogueOptions[characterName]; ok {
		out := append([]string(nil), options...)
		session.mu.Unlock()
		return out, nil
	}
	session.mu.Unlock()

	options, loadErr := s.readDialogueFile(characterName)
	if loadErr != nil {
		// 文件缺失或不可达是可恢复故障：记录后回退到角色自带对白
		s.logger.Warnf("对白文件加载失败，回退到角色内置对白: %s: %v", characterName, loadErr)
		options = append([]string(nil), ch.Dialogue...)
	}

	session.mu.Lock()
	session.dialogueOptions[characterName] = options
	session.lastUpdated = time.Now()
	out := append([]string(nil), options...)
	session.mu.Unlock()

	return out, nil
}

// readDialogueFile 读取对白文件并按行拆分，去除首尾空白、丢弃空行
func (s *DialogueService) readDialogueFile(characterName string) ([]string, error) {
	filename := dialogueFileName(characterName)

	var raw string
	if strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://") {
		url := strings.TrimRight(s.source, "/") + "/" + filename
		resp, err := s.httpClient.Get(url)
		if err != nil {
			return nil, apperrors.NewIOError("请求对白文件失败: "+url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.NewIOError(fmt.Sprintf("对白文件返回状态码 %d: %s", resp.StatusCode, url), nil)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apperrors.NewIOError("读取对白响应失败: "+url, err)
		}
		raw = string(body)
	} else {
		content, err := os.ReadFile(filepath.Join(s.source, filename))
		if err != nil {
			return nil, apperrors.NewIOError("读取对白文件失败: "+filename, err)
		}
		raw = string(content)
	}

	var options []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			options = append(options, line)
		}
	}

	return options, nil
}

// ConsumeOption 消费一条对白选项：取出指定下标的文本并从库存删除
// 同一条选项只能使用一次
func (s *DialogueService) ConsumeOption(session *Session, characterName string, index int) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	options, ok := session.dialogueOptions[characterName]
	if !ok {
		return "", apperrors.NewNotFoundError("角色的对白选项尚未加载: "+characterName, nil)
	}
	if index < 0 || index >= len(options) {
		return "", apperrors.NewValidationError(fmt.Sprintf("对白选项下标越界: %d", index), nil)
	}

	text := options[index]
	session.dialogueOptions[characterName] = append(options[:index], options[index+1:]...)
	session.lastUpdated = time.Now()

	return text, nil
}

// OptionsFor 当前库存中某角色剩余的对白选项（不触发加载）
func (s *DialogueService) OptionsFor(session *Session, characterName string) []string {
	session.mu.Lock()
	defer session.mu.Unlock()
	return append([]string(nil), session.dialogueOptions[characterName]...)
}
