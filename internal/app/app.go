// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/config"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/di"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/services"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/storage"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/utils"
)

// Server 抽象HTTP服务器，便于测试时替换
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用程序实例
type App struct {
	config   *config.AppConfig
	router   http.Handler
	server   Server
	stopChan chan os.Signal
}

var (
	instance *App
	once     sync.Once
)

// GetApp 获取应用单例
func GetApp() *App {
	once.Do(func() {
		if instance == nil {
			instance = &App{
				stopChan: make(chan os.Signal, 1),
			}
		}
	})
	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer 获取依赖注入容器
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode 检查是否处于调试模式
func IsDebugMode() bool {
	if instance == nil || instance.config == nil {
		return false
	}
	return instance.config.DebugMode
}

// initLogger 初始化日志系统
func initLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// InitServices 按依赖顺序初始化所有服务并注册到DI容器
func InitServices() error {
	container := di.GetContainer()
	cfg := config.GetCurrentConfig()

	// 文件存储
	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("初始化文件存储失败: %w", err)
	}
	container.Register("storage", fileStorage)

	// 目录服务（角色与场景参考数据）
	catalogService := services.NewCatalogService(cfg.CharactersSource, cfg.ScenesSource)
	container.Register("catalog", catalogService)

	// 会话服务依赖目录服务
	sessionService := services.NewSessionService(catalogService)
	container.Register("session", sessionService)

	// 对白服务依赖会话服务
	dialogueService := services.NewDialogueService(sessionService, cfg.DialoguesSource)
	container.Register("dialogue", dialogueService)

	// 提示词服务
	promptService := services.NewPromptService(sessionService)
	container.Register("prompt", promptService)

	// 工程服务依赖会话服务与文件存储
	projectService := services.NewProjectService(sessionService, fileStorage)
	container.Register("project", projectService)

	// 统计服务
	statsService := services.NewStatsService(catalogService, sessionService)
	container.Register("stats", statsService)

	// 配置服务（数据来源管理）
	configService := services.NewConfigService()
	container.Register("config", configService)

	// 启动时并行加载两份参考数据目录
	// 加载失败不阻止启动：下游功能保持不可用，用户可通过API重试
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := catalogService.LoadData(ctx); err != nil {
		utils.GetLogger().Errorf("参考数据加载失败: %v", err)
	}

	return nil
}

// Initialize 初始化应用：配置、日志、服务、路由
func Initialize(routerSetup func() (http.Handler, error)) error {
	app := GetApp()

	baseConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		return fmt.Errorf("初始化配置失败: %w", err)
	}

	cfg := config.GetCurrentConfig()
	app.config = cfg

	if err := initLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	router, routerErr := routerSetup()
	if routerErr != nil {
		return fmt.Errorf("设置路由失败: %w", routerErr)
	}
	app.router = router

	return nil
}

// Run 启动HTTP服务器并阻塞到收到停止信号
func Run() error {
	app := GetApp()

	if app.server == nil {
		app.server = &http.Server{
			Addr:    ":" + app.config.Port,
			Handler: app.router,
		}
	}

	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务器失败: %v", err)
		}
	}()

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-app.stopChan

	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	app.cleanup()

	log.Println("服务器已关闭")
	return nil
}

// cleanup 释放容器中持有资源的服务
func (a *App) cleanup() {
	container := di.GetContainer()

	if logger := utils.GetLogger(); logger != nil {
		logger.Info("应用正在清理资源", nil)
	}

	container.Clear()
}
