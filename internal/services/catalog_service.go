// internal/services/catalog_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	apperrors "github.com/CardiffAirportTV/VEO3StudioMCP/internal/errors"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/utils"
)

// CatalogService 持有启动时加载的两份只读参考目录
// 角色与场景目录加载后不再修改，用户编辑只写入会话的覆盖存储
type CatalogService struct {
	mu sync.RWMutex

	characters     map[string]*models.Character
	characterOrder []string
	scenes         map[string]*models.Scene
	sceneOrder     []string

	loaded   bool
	loadedAt time.Time
	lastErr  error

	// 数据来源（本地路径或HTTP地址）
	charactersSource string
	scenesSource     string

	httpClient *http.Client
}

// NewCatalogService 创建目录服务
func NewCatalogService(charactersSource, scenesSource string) *CatalogService {
	return &CatalogService{
		charactersSource: charactersSource,
		scenesSource:     scenesSource,
		httpClient:       &http.Client{},
	}
}

// UpdateSources 更新数据来源，下次 LoadData 生效
func (s *CatalogService) UpdateSources(charactersSource, scenesSource string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if charactersSource != "" {
		s.charactersSource = charactersSource
	}
	if scenesSource != "" {
		s.scenesSource = scenesSource
	}
}

// LoadData 并行加载两份目录
// 任何一份失败都视为整体失败，目录保持未加载状态，等待手动重试
func (s *CatalogService) LoadData(ctx context.Context) error {
	type loadResult struct {
		data []byte
		err  error
	}

	s.mu.RLock()
	charactersSource := s.charactersSource
	scenesSource := s.scenesSource
	s.mu.RUnlock()

	charCh := make(chan loadResult, 1)
	sceneCh := make(chan loadResult, 1)

	go func() {
		data, err := s.fetchSource(ctx, charactersSource)
		charCh <- loadResult{data, err}
	}()
	go func() {
		data, err := s.fetchSource(ctx, scenesSource)
		sceneCh <- loadResult{data, err}
	}()

	charRes := <-charCh
	sceneRes := <-sceneCh

	if charRes.err != nil {
		return s.recordFailure(apperrors.NewLoadFailureError(
			fmt.Sprintf("加载角色目录失败: %s", charactersSource), charRes.err))
	}
	if sceneRes.err != nil {
		return s.recordFailure(apperrors.NewLoadFailureError(
			fmt.Sprintf("加载场景目录失败: %s", scenesSource), sceneRes.err))
	}

	characters, characterOrder, err := decodeCharacterCatalog(charRes.data)
	if err != nil {
		return s.recordFailure(apperrors.NewLoadFailureError("解析角色目录失败", err))
	}

	scenes, sceneOrder, err := decodeSceneCatalog(sceneRes.data)
	if err != nil {
		return s.recordFailure(apperrors.NewLoadFailureError("解析场景目录失败", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.characters = characters
	s.characterOrder = characterOrder
	s.scenes = scenes
	s.sceneOrder = sceneOrder
	s.loaded = true
	s.loadedAt = time.Now()
	s.lastErr = nil

	utils.GetLogger().Infof("目录加载完成: %d 个角色, %d 个场景", len(characters), len(scenes))
	return nil
}

// recordFailure 记录失败并保持目录未加载
func (s *CatalogService) recordFailure(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	utils.GetLogger().Errorf("目录加载失败: %v", err)
	return err
}

// fetchSource 读取数据来源，支持本地文件和HTTP地址
func (s *CatalogService) fetchSource(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP状态码异常: %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	}

	return os.ReadFile(source)
}

// decodeCharacterCatalog 解析角色目录并保留文档中的键顺序
// 画廊迭代顺序始终由目录顺序驱动，覆盖存储不增删键
func decodeCharacterCatalog(data []byte) (map[string]*models.Character, []string, error) {
	characters := make(map[string]*models.Character)
	var order []string

	err := walkObjectKeys(data, func(key string, dec *json.Decoder) error {
		var ch models.Character
		if err := dec.Decode(&ch); err != nil {
			return err
		}
		if _, exists := characters[key]; !exists {
			order = append(order, key)
		}
		characters[key] = &ch
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return characters, order, nil
}

// decodeSceneCatalog 解析场景目录并保留文档中的键顺序
func decodeSceneCatalog(data []byte) (map[string]*models.Scene, []string, error) {
	scenes := make(map[string]*models.Scene)
	var order []string

	err := walkObjectKeys(data, func(key string, dec *json.Decoder) error {
		var sc models.Scene
		if err := dec.Decode(&sc); err != nil {
			return err
		}
		if _, exists := scenes[key]; !exists {
			order = append(order, key)
		}
		scenes[key] = &sc
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return scenes, order, nil
}

// walkObjectKeys 按文档顺序遍历顶层JSON对象的键
func walkObjectKeys(data []byte, visit func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("目录文档必须是JSON对象")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("目录键必须是字符串")
		}

		if err := visit(key, dec); err != nil {
			return fmt.Errorf("解析条目 %q 失败: %w", key, err)
		}
	}

	// 消费收尾的 '}'
	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}

// Loaded 目录是否已成功加载
func (s *CatalogService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LastError 最近一次加载失败的错误（成功后清空）
func (s *CatalogService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Character 按键获取目录中的角色
func (s *CatalogService) Character(name string) (*models.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.characters[name]
	return ch, ok
}

// Scene 按键获取目录中的场景
func (s *CatalogService) Scene(name string) (*models.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenes[name]
	return sc, ok
}

// CharacterOrder 角色目录的迭代顺序（文档顺序）
func (s *CatalogService) CharacterOrder() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.characterOrder...)
}

// SceneOrder 场景目录的迭代顺序（文档顺序）
func (s *CatalogService) SceneOrder() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.sceneOrder...)
}

// CharacterCount 目录中的角色数量
func (s *CatalogService) CharacterCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.characters)
}

// SceneCount 目录中的场景数量
func (s *CatalogService) SceneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}
