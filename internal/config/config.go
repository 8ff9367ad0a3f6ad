// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	StaticDir string `json:"static_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// 参考数据来源（本地路径或HTTP地址）
	CharactersSource string `json:"characters_source"`
	ScenesSource     string `json:"scenes_source"`

	// 每角色对白文件的来源目录（本地路径或HTTP基地址），可选
	DialoguesSource string `json:"dialogues_source"`
}

// Config 存储应用配置
type Config struct {
	Port             string
	DataDir          string
	StaticDir        string
	LogDir           string
	DebugMode        bool
	CharactersSource string
	ScenesSource     string
	DialoguesSource  string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		DataDir:          getEnvPath("DATA_DIR", "data"),
		StaticDir:        getEnvPath("STATIC_DIR", "static"),
		LogDir:           getEnvPath("LOG_DIR", "logs"),
		DebugMode:        getEnvBool("DEBUG_MODE", true),
		CharactersSource: getEnv("CHARACTERS_SOURCE", "data/characters.json"),
		ScenesSource:     getEnv("SCENES_SOURCE", "data/scenes.json"),
		DialoguesSource:  getEnv("DIALOGUES_SOURCE", "data/dialogues"),
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	// 加载基础配置
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:             baseConfig.Port,
		DataDir:          baseConfig.DataDir,
		StaticDir:        baseConfig.StaticDir,
		LogDir:           baseConfig.LogDir,
		DebugMode:        baseConfig.DebugMode,
		CharactersSource: baseConfig.CharactersSource,
		ScenesSource:     baseConfig.ScenesSource,
		DialoguesSource:  baseConfig.DialoguesSource,
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 合并配置，保留文件中的数据来源设置，但使用最新的基础配置
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.StaticDir = baseConfig.StaticDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode

				if savedConfig.CharactersSource == "" {
					savedConfig.CharactersSource = baseConfig.CharactersSource
				}
				if savedConfig.ScenesSource == "" {
					savedConfig.ScenesSource = baseConfig.ScenesSource
				}
				if savedConfig.DialoguesSource == "" {
					savedConfig.DialoguesSource = baseConfig.DialoguesSource
				}

				currentConfig = &savedConfig
			}
		}
	}

	// 保存初始配置到文件
	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Port:             baseConfig.Port,
			DataDir:          baseConfig.DataDir,
			StaticDir:        baseConfig.StaticDir,
			LogDir:           baseConfig.LogDir,
			DebugMode:        baseConfig.DebugMode,
			CharactersSource: baseConfig.CharactersSource,
			ScenesSource:     baseConfig.ScenesSource,
			DialoguesSource:  baseConfig.DialoguesSource,
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// UpdateDataSources 更新参考数据来源
func UpdateDataSources(charactersSource, scenesSource, dialoguesSource string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	if charactersSource != "" {
		currentConfig.CharactersSource = charactersSource
	}
	if scenesSource != "" {
		currentConfig.ScenesSource = scenesSource
	}
	if dialoguesSource != "" {
		currentConfig.DialoguesSource = dialoguesSource
	}

	return SaveConfig()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	// 确保目录存在
	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0644); err != nil {
		log.Printf("保存配置文件失败: %v", err)
		return err
	}
	return nil
}
