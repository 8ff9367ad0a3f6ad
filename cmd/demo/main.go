// cmd/demo/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/config"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/services"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/utils"
)

// 离线演示：加载本地目录、组装一次提示词并打印工程快照
func main() {
	fmt.Println("🚀 VEO3StudioMCP Console Demo")
	fmt.Println("=================================")

	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 加载基础配置失败: %v", err)
	}

	logFile := fmt.Sprintf("%s/console_%s.log", baseConfig.LogDir, time.Now().Format("2006-01-02"))
	if err := utils.InitLogger(logFile); err != nil {
		log.Printf("⚠️ 无法初始化结构化日志: %v", err)
	}

	catalogService := services.NewCatalogService(baseConfig.CharactersSource, baseConfig.ScenesSource)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := catalogService.LoadData(ctx); err != nil {
		log.Fatalf("❌ 参考数据加载失败: %v", err)
	}
	fmt.Printf("✅ 目录加载完成: %d 个角色, %d 个场景\n",
		catalogService.CharacterCount(), catalogService.SceneCount())

	sessionService := services.NewSessionService(catalogService)
	promptService := services.NewPromptService(sessionService)

	session := sessionService.CreateSession()
	fmt.Printf("✅ 会话已创建: %s\n", session.ID)

	// 选中前两个角色和第一个场景
	characterOrder := catalogService.CharacterOrder()
	if len(characterOrder) < 2 {
		log.Fatalf("❌ 角色目录至少需要2个角色")
	}
	for _, name := range characterOrder[:2] {
		if _, err := sessionService.ToggleCharacter(session, name); err != nil {
			log.Fatalf("❌ 选择角色失败: %v", err)
		}
		fmt.Printf("   已选择角色: %s\n", name)
	}

	sceneOrder := catalogService.SceneOrder()
	if len(sceneOrder) == 0 {
		log.Fatalf("❌ 场景目录为空")
	}
	if _, err := sessionService.SelectScene(session, sceneOrder[0]); err != nil {
		log.Fatalf("❌ 选择场景失败: %v", err)
	}
	fmt.Printf("   已选择场景: %s\n", sceneOrder[0])

	// 多角色开场对白与群像镜头模板
	if _, err := sessionService.StartMultiCharacterDialogue(session); err != nil {
		log.Fatalf("❌ 初始化对白失败: %v", err)
	}
	if _, err := sessionService.LoadCameraTemplate(session, "ensemble"); err != nil {
		log.Fatalf("❌ 加载镜头模板失败: %v", err)
	}

	prompt, _, err := promptService.Assemble(session, models.DefaultPromptToggles())
	if err != nil {
		log.Fatalf("❌ 生成提示词失败: %v", err)
	}

	fmt.Println("\n===== VEO3 PROMPT =====")
	fmt.Println(prompt)

	// 打印工程快照（不落盘）
	projectService := services.NewProjectService(sessionService, nil)
	snapshot := projectService.Snapshot(session)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		log.Fatalf("❌ 序列化工程快照失败: %v", err)
	}
	fmt.Println("\n===== PROJECT SNAPSHOT =====")
	fmt.Println(string(data))
}
