// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/config"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/di"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// 只从容器获取服务，不再创建新实例
	catalogService, ok := container.Get("catalog").(*services.CatalogService)
	if !ok {
		return nil, fmt.Errorf("目录服务未正确初始化")
	}

	sessionService, ok := container.Get("session").(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("会话服务未正确初始化")
	}

	dialogueService, ok := container.Get("dialogue").(*services.DialogueService)
	if !ok {
		return nil, fmt.Errorf("对白服务未正确初始化")
	}

	promptService, ok := container.Get("prompt").(*services.PromptService)
	if !ok {
		return nil, fmt.Errorf("提示词服务未正确初始化")
	}

	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("工程服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	configService, ok := container.Get("config").(*services.ConfigService)
	if !ok {
		return nil, fmt.Errorf("配置服务未正确初始化")
	}

	handler := NewHandler(
		catalogService,
		sessionService,
		dialogueService,
		promptService,
		projectService,
		statsService,
		configService,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// 静态文件服务与单页外壳
	r.Static("/static", cfg.StaticDir)
	r.StaticFile("/", filepath.Join(cfg.StaticDir, "index.html"))

	// WebSocket 支持
	r.GET("/ws/sessions/:id", handler.SessionWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// ===============================
		// 参考数据路由
		// ===============================
		dataGroup := api.Group("/data")
		{
			dataGroup.POST("/reload", ReloadRateLimit(), handler.ReloadData)
			dataGroup.GET("/status", handler.GetDataStatus)
		}

		// ===============================
		// 设置相关路由
		// ===============================
		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.PUT("/data-sources", handler.UpdateDataSources)
		}

		// ===============================
		// 会话路由
		// ===============================
		api.POST("/sessions", handler.CreateSession)

		sessionsGroup := api.Group("/sessions/:id")
		{
			sessionsGroup.GET("", handler.GetSessionState)

			// 角色画廊与选择
			charactersGroup := sessionsGroup.Group("/characters")
			{
				charactersGroup.GET("", handler.GetCharacterGallery)
				charactersGroup.POST("/select-all", handler.SelectAllCharacters)
				charactersGroup.POST("/clear", handler.ClearCharacterSelection)
				charactersGroup.POST("/:name/toggle", handler.ToggleCharacter)
				charactersGroup.PUT("/:name", handler.UpdateCharacter)
				charactersGroup.GET("/:name/dialogue-options", handler.GetDialogueOptions)
				charactersGroup.POST("/:name/dialogue-options/:index/consume", handler.ConsumeDialogueOption)
			}
			sessionsGroup.GET("/categories", handler.GetCategories)

			// 场景
			scenesGroup := sessionsGroup.Group("/scenes")
			{
				scenesGroup.GET("", handler.GetScenes)
				scenesGroup.POST("/:name/select", handler.SelectScene)
				scenesGroup.PUT("/:name", handler.UpdateScene)
			}
			sessionsGroup.GET("/compatibility", handler.GetCompatibility)

			// 对白序列
			dialogueGroup := sessionsGroup.Group("/dialogue")
			{
				dialogueGroup.POST("", handler.AddDialogueLine)
				dialogueGroup.PUT("/:index", handler.EditDialogueLine)
				dialogueGroup.DELETE("/:index", handler.RemoveDialogueLine)
				dialogueGroup.POST("/multi-start", handler.StartMultiCharacterDialogue)
			}

			// 镜头序列
			cameraGroup := sessionsGroup.Group("/camera")
			{
				cameraGroup.GET("/options", handler.GetCameraOptions)
				cameraGroup.PUT("/:index", handler.UpsertCameraShot)
				cameraGroup.DELETE("/:index", handler.RemoveCameraShot)
				cameraGroup.POST("/templates/:template", handler.LoadCameraTemplate)
			}

			// 提示词
			promptGroup := sessionsGroup.Group("/prompt")
			{
				promptGroup.GET("", handler.GetPrompt)
				promptGroup.POST("/generate", handler.GeneratePrompt)
				promptGroup.PUT("/config", handler.UpdatePromptConfig)
			}

			// 工程导入导出
			projectGroup := sessionsGroup.Group("/project")
			{
				projectGroup.GET("/export", handler.ExportProject)
				projectGroup.POST("/import", handler.ImportProject)
			}

			// 统计与状态
			sessionsGroup.GET("/stats", handler.GetDashboardStats)
			sessionsGroup.GET("/workflow", handler.GetWorkflowStatus)
			sessionsGroup.GET("/summary", handler.GetGeneratorSummary)
		}

		// 调试路由
		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
