// internal/services/config_service.go
package services

import (
	"sync"
	"time"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/config"
)

// ConfigService 提供配置管理功能
type ConfigService struct {
	// 缓存最近获取的配置，减少反复访问底层存储
	cachedConfig *config.AppConfig

	// 配置更新时间
	lastUpdated time.Time

	// 配置历史记录
	changeHistory []ConfigChangeRecord

	// 互斥锁保护内部状态
	mu sync.RWMutex
}

// ConfigChangeRecord 配置变更记录
type ConfigChangeRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Section   string      `json:"section"`
	OldValue  interface{} `json:"old_value"`
	NewValue  interface{} `json:"new_value"`
}

// NewConfigService 创建配置服务实例
func NewConfigService() *ConfigService {
	return &ConfigService{
		lastUpdated:   time.Now(),
		changeHistory: make([]ConfigChangeRecord, 0),
	}
}

// GetSettings 获取当前配置
func (s *ConfigService) GetSettings() *config.AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cachedConfig = config.GetCurrentConfig()
	return s.cachedConfig
}

// UpdateDataSources 更新参考数据来源并记录变更历史
// 更新只改来源配置，已加载的目录保持不变，需要显式重新加载才生效
func (s *ConfigService) UpdateDataSources(charactersSource, scenesSource, dialoguesSource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := config.GetCurrentConfig()

	if err := config.UpdateDataSources(charactersSource, scenesSource, dialoguesSource); err != nil {
		return err
	}

	updated := config.GetCurrentConfig()
	s.recordChange("characters_source", old.CharactersSource, updated.CharactersSource)
	s.recordChange("scenes_source", old.ScenesSource, updated.ScenesSource)
	s.recordChange("dialogues_source", old.DialoguesSource, updated.DialoguesSource)

	s.cachedConfig = updated
	s.lastUpdated = time.Now()

	return nil
}

// recordChange 值发生变化时追加一条历史记录
func (s *ConfigService) recordChange(section string, oldValue, newValue string) {
	if oldValue == newValue {
		return
	}

	s.changeHistory = append(s.changeHistory, ConfigChangeRecord{
		Timestamp: time.Now(),
		Section:   section,
		OldValue:  oldValue,
		NewValue:  newValue,
	})

	// 历史记录只保留最近100条
	if len(s.changeHistory) > 100 {
		s.changeHistory = s.changeHistory[len(s.changeHistory)-100:]
	}
}

// ChangeHistory 配置变更历史的拷贝
func (s *ConfigService) ChangeHistory() []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ConfigChangeRecord(nil), s.changeHistory...)
}
