// internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/models"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/services"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/storage"
)

const testCharactersJSON = `{
	"Gareth the Security Guard": {
		"description": "A burly Welsh security guard with a heart of gold",
		"voice": "Deep Welsh valleys accent, slow and deliberate",
		"category": "staff",
		"scenes": ["Security Checkpoint", "Departure Lounge"],
		"dialogue": ["Anything metal in your pockets, love?"]
	},
	"Brenda from Check-in": {
		"description": "A cheerful check-in attendant who knows everyone",
		"voice": "Bright Cardiff accent, fast and friendly",
		"category": "staff",
		"scenes": ["Check-in Desk"],
		"dialogue": ["Passport and boarding pass please, my lovely!"]
	}
}`

const testScenesJSON = `{
	"Departure Lounge": {
		"description": "A bustling departure lounge with views of the runway",
		"subtitle": "Gate 3, late afternoon"
	},
	"Check-in Desk": {
		"description": "A row of check-in desks with a short queue",
		"subtitle": "Terminal hall"
	}
}`

// newTestRouter 组装一个接入真实服务的测试路由
// loaded 为 false 时目录保持未加载状态，用于验证 503 行为
func newTestRouter(t *testing.T, loaded bool) (*gin.Engine, *services.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tempDir := t.TempDir()
	charactersPath := filepath.Join(tempDir, "characters.json")
	scenesPath := filepath.Join(tempDir, "scenes.json")
	if err := os.WriteFile(charactersPath, []byte(testCharactersJSON), 0644); err != nil {
		t.Fatalf("写入角色目录文件失败: %v", err)
	}
	if err := os.WriteFile(scenesPath, []byte(testScenesJSON), 0644); err != nil {
		t.Fatalf("写入场景目录文件失败: %v", err)
	}

	catalogService := services.NewCatalogService(charactersPath, scenesPath)
	if loaded {
		if err := catalogService.LoadData(context.Background()); err != nil {
			t.Fatalf("加载测试目录失败: %v", err)
		}
	}

	sessionService := services.NewSessionService(catalogService)
	dialogueService := services.NewDialogueService(sessionService, tempDir)
	promptService := services.NewPromptService(sessionService)
	fileStorage, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}
	projectService := services.NewProjectService(sessionService, fileStorage)
	statsService := services.NewStatsService(catalogService, sessionService)
	configService := services.NewConfigService()

	h := NewHandler(catalogService, sessionService, dialogueService,
		promptService, projectService, statsService, configService)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/sessions", h.CreateSession)
	sessions := api.Group("/sessions/:id")
	{
		sessions.GET("", h.GetSessionState)
		sessions.GET("/characters", h.GetCharacterGallery)
		sessions.POST("/characters/:name/toggle", h.ToggleCharacter)
		sessions.POST("/characters/select-all", h.SelectAllCharacters)
		sessions.PUT("/characters/:name", h.UpdateCharacter)
		sessions.GET("/characters/:name/dialogue-options", h.GetDialogueOptions)
		sessions.POST("/scenes/:name/select", h.SelectScene)
		sessions.POST("/dialogue", h.AddDialogueLine)
		sessions.PUT("/camera/:index", h.UpsertCameraShot)
		sessions.POST("/prompt/generate", h.GeneratePrompt)
		sessions.GET("/prompt", h.GetPrompt)
		sessions.GET("/project/export", h.ExportProject)
		sessions.POST("/project/import", h.ImportProject)
		sessions.GET("/workflow", h.GetWorkflowStatus)
	}

	return r, sessionService
}

// doJSON 发起一次JSON请求并解析标准响应信封
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, *APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope APIResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("解析响应信封失败: %v\n%s", err, w.Body.String())
		}
	}
	return w, &envelope
}

// createTestSession 通过API创建会话并返回ID
func createTestSession(t *testing.T, r *gin.Engine) string {
	t.Helper()

	w, envelope := doJSON(t, r, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("创建会话应返回201: %d\n%s", w.Code, w.Body.String())
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("创建会话响应格式不正确: %v", envelope.Data)
	}
	id, _ := data["session_id"].(string)
	if id == "" {
		t.Fatal("创建会话响应缺少会话ID")
	}
	return id
}

func TestCreateAndGetSession(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("获取会话状态应返回200: %d", w.Code)
	}
	if !envelope.Success {
		t.Fatal("响应应标记为成功")
	}

	data := envelope.Data.(map[string]interface{})
	for _, key := range []string{"snapshot", "compatibility", "stats", "workflow", "summary"} {
		if _, ok := data[key]; !ok {
			t.Fatalf("会话状态响应缺少字段 %s", key)
		}
	}
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/sessions/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("不存在的会话应返回404: %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrorSessionNotFound {
		t.Fatalf("错误码不正确: %+v", envelope.Error)
	}
}

func TestCatalogNotLoadedReturns503(t *testing.T) {
	r, _ := newTestRouter(t, false)
	id := createTestSession(t, r)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/characters", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("目录未加载时应返回503: %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrorCatalogNotLoaded {
		t.Fatalf("错误码不正确: %+v", envelope.Error)
	}
}

func TestToggleCharacterEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	w, envelope := doJSON(t, r, http.MethodPost,
		"/api/sessions/"+id+"/characters/Gareth%20the%20Security%20Guard/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("切换角色应返回200: %d\n%s", w.Code, w.Body.String())
	}

	data := envelope.Data.(map[string]interface{})
	selected, _ := data["selected_characters"].([]interface{})
	if len(selected) != 1 || selected[0] != "Gareth the Security Guard" {
		t.Fatalf("选中列表不正确: %v", selected)
	}

	// 未知角色返回404
	w, _ = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/characters/Nobody/toggle", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("未知角色应返回404: %d", w.Code)
	}
}

func TestGeneratePromptEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	// 未选择时返回400验证错误
	w, envelope := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/prompt/generate", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("未选择角色时生成应返回400: %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrorValidation {
		t.Fatalf("错误码不正确: %+v", envelope.Error)
	}

	doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/characters/Gareth%20the%20Security%20Guard/toggle", nil)
	doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/scenes/Departure%20Lounge/select", nil)

	w, envelope = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/prompt/generate",
		map[string]bool{"includeBroadcastQuality": false})
	if w.Code != http.StatusOK {
		t.Fatalf("生成提示词应返回200: %d\n%s", w.Code, w.Body.String())
	}

	data := envelope.Data.(map[string]interface{})
	prompt, _ := data["prompt"].(string)
	if !strings.HasPrefix(prompt, services.PromptHeader) {
		t.Fatal("提示词应以固定头部开始")
	}
	if strings.Contains(prompt, "BROADCAST QUALITY") {
		t.Fatal("请求中关闭的开关应生效")
	}

	// 工作流的生成步骤应标记完成
	_, envelope = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/workflow", nil)
	workflow := envelope.Data.(map[string]interface{})
	if generator, _ := workflow["generator"].(bool); !generator {
		t.Fatal("生成后工作流的生成步骤应完成")
	}
}

func TestAddDialogueLineEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	w, _ := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/dialogue",
		AddDialogueLineRequest{Speaker: "Gareth the Security Guard", Text: "Morning!"})
	if w.Code != http.StatusOK {
		t.Fatalf("追加对白应返回200: %d\n%s", w.Code, w.Body.String())
	}

	w, envelope := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/dialogue",
		AddDialogueLineRequest{Speaker: "Gareth the Security Guard", Text: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("空白对白应返回400: %d", w.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrorValidation {
		t.Fatalf("错误码不正确: %+v", envelope.Error)
	}
}

func TestExportImportEndpoints(t *testing.T) {
	r, sessionService := newTestRouter(t, true)
	id := createTestSession(t, r)

	doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/characters/Gareth%20the%20Security%20Guard/toggle", nil)
	doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/scenes/Departure%20Lounge/select", nil)
	doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/dialogue",
		AddDialogueLineRequest{Speaker: "Gareth the Security Guard", Text: "Morning!"})

	// 导出是原始JSON下载，不走响应信封
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/project/export", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("导出应返回200: %d", w.Code)
	}
	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "cardiff-airport-veo3-project-") {
		t.Fatalf("下载头缺少导出文件名: %s", disposition)
	}

	var snapshot models.ProjectSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("导出内容不是有效JSON: %v", err)
	}
	if snapshot.SelectedScene != "Departure Lounge" {
		t.Fatalf("导出快照内容不正确: %+v", snapshot)
	}

	// 导入到新会话，状态应完整恢复
	freshID := createTestSession(t, r)
	req = httptest.NewRequest(http.MethodPost, "/api/sessions/"+freshID+"/project/import",
		bytes.NewReader(w.Body.Bytes()))
	req.Header.Set("Content-Type", "application/json")
	importW := httptest.NewRecorder()
	r.ServeHTTP(importW, req)
	if importW.Code != http.StatusOK {
		t.Fatalf("导入应返回200: %d\n%s", importW.Code, importW.Body.String())
	}

	fresh, err := sessionService.GetSession(freshID)
	if err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}
	if fresh.SelectedScene() != "Departure Lounge" {
		t.Fatal("导入后场景选择未恢复")
	}
	if len(fresh.DialogueSequence()) != 1 {
		t.Fatal("导入后对白序列未恢复")
	}
}

func TestImportMalformedDocument(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/project/import",
		strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("非法工程文件应返回400: %d", w.Code)
	}

	var envelope APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("解析响应信封失败: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrorProjectParseFailed {
		t.Fatalf("错误码不正确: %+v", envelope.Error)
	}
}

func TestUpsertCameraShotEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	w, _ := doJSON(t, r, http.MethodPut, "/api/sessions/"+id+"/camera/0",
		models.CameraShot{ShotType: "wide", Movement: "static"})
	if w.Code != http.StatusOK {
		t.Fatalf("写入镜头应返回200: %d\n%s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, r, http.MethodPut, "/api/sessions/"+id+"/camera/0",
		models.CameraShot{ShotType: "drone", Movement: "static"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("非法镜头类型应返回400: %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPut, "/api/sessions/"+id+"/camera/abc",
		models.CameraShot{ShotType: "wide", Movement: "static"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("非数字下标应返回400: %d", w.Code)
	}
}

func TestDialogueOptionsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, true)
	id := createTestSession(t, r)

	// 没有对白文件，应回退到角色内置对白
	w, envelope := doJSON(t, r, http.MethodGet,
		"/api/sessions/"+id+"/characters/Gareth%20the%20Security%20Guard/dialogue-options", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("获取对白选项应返回200: %d\n%s", w.Code, w.Body.String())
	}

	data := envelope.Data.(map[string]interface{})
	options, _ := data["options"].([]interface{})
	if len(options) != 1 || options[0] != "Anything metal in your pockets, love?" {
		t.Fatalf("对白选项不正确: %v", options)
	}
}
