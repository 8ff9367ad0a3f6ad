// internal/services/catalog_service_test.go
package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const testCharactersJSON = `{
	"Gareth the Security Guard": {
		"description": "A burly Welsh security guard with a heart of gold",
		"voice": "Deep Welsh valleys accent, slow and deliberate",
		"category": "staff",
		"scenes": ["Security Checkpoint", "Departure Lounge"],
		"dialogue": ["Anything metal in your pockets, love?", "Right you are, through you go."]
	},
	"Brenda from Check-in": {
		"description": "A cheerful check-in attendant who knows everyone",
		"voice": "Bright Cardiff accent, fast and friendly",
		"category": "staff",
		"scenes": ["Check-in Desk"],
		"dialogue": ["Passport and boarding pass please, my lovely!"]
	},
	"Dave the Baggage Handler": {
		"description": "A laid-back baggage handler with strong opinions about rugby",
		"voice": "Gruff Swansea accent",
		"category": "ground-crew",
		"scenes": ["Departure Lounge"],
		"dialogue": ["That bag's seen better days, mate."]
	}
}`

const testScenesJSON = `{
	"Departure Lounge": {
		"description": "A bustling departure lounge with views of the runway",
		"subtitle": "Gate 3, late afternoon",
		"atmosphere": "busy"
	},
	"Security Checkpoint": {
		"description": "The security checkpoint at peak morning rush",
		"subtitle": "Main terminal entrance"
	},
	"Check-in Desk": {
		"description": "A row of check-in desks with a short queue",
		"subtitle": "Terminal hall"
	}
}`

// writeTestCatalogs 把测试目录写入临时目录并返回两个文件路径
func writeTestCatalogs(t *testing.T) (string, string) {
	t.Helper()

	tempDir := t.TempDir()
	charactersPath := filepath.Join(tempDir, "characters.json")
	scenesPath := filepath.Join(tempDir, "scenes.json")

	if err := os.WriteFile(charactersPath, []byte(testCharactersJSON), 0644); err != nil {
		t.Fatalf("写入角色目录文件失败: %v", err)
	}
	if err := os.WriteFile(scenesPath, []byte(testScenesJSON), 0644); err != nil {
		t.Fatalf("写入场景目录文件失败: %v", err)
	}

	return charactersPath, scenesPath
}

// newTestCatalogService 创建一个已加载测试数据的目录服务
func newTestCatalogService(t *testing.T) *CatalogService {
	t.Helper()

	charactersPath, scenesPath := writeTestCatalogs(t)
	svc := NewCatalogService(charactersPath, scenesPath)
	if err := svc.LoadData(context.Background()); err != nil {
		t.Fatalf("加载测试目录失败: %v", err)
	}
	return svc
}

func TestLoadDataPreservesDocumentOrder(t *testing.T) {
	svc := newTestCatalogService(t)

	wantCharacters := []string{"Gareth the Security Guard", "Brenda from Check-in", "Dave the Baggage Handler"}
	if got := svc.CharacterOrder(); !reflect.DeepEqual(got, wantCharacters) {
		t.Fatalf("角色迭代顺序应与文档顺序一致，期望 %v，实际 %v", wantCharacters, got)
	}

	wantScenes := []string{"Departure Lounge", "Security Checkpoint", "Check-in Desk"}
	if got := svc.SceneOrder(); !reflect.DeepEqual(got, wantScenes) {
		t.Fatalf("场景迭代顺序应与文档顺序一致，期望 %v，实际 %v", wantScenes, got)
	}
}

func TestLoadDataDecodesEntities(t *testing.T) {
	svc := newTestCatalogService(t)

	ch, ok := svc.Character("Gareth the Security Guard")
	if !ok {
		t.Fatal("应该能找到角色 Gareth the Security Guard")
	}
	if ch.Category != "staff" {
		t.Fatalf("角色类别不正确，期望 staff，实际 %s", ch.Category)
	}
	if len(ch.Scenes) != 2 || ch.Scenes[0] != "Security Checkpoint" {
		t.Fatalf("角色兼容场景列表不正确: %v", ch.Scenes)
	}

	sc, ok := svc.Scene("Departure Lounge")
	if !ok {
		t.Fatal("应该能找到场景 Departure Lounge")
	}
	if sc.Subtitle != "Gate 3, late afternoon" {
		t.Fatalf("场景副标题不正确: %s", sc.Subtitle)
	}
}

func TestLoadDataPartialFailureIsTotalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/characters.json" {
			w.Write([]byte(testCharactersJSON))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewCatalogService(server.URL+"/characters.json", server.URL+"/scenes.json")

	err := svc.LoadData(context.Background())
	if err == nil {
		t.Fatal("一份目录失败时 LoadData 应该整体失败")
	}
	if svc.Loaded() {
		t.Fatal("加载失败后目录不应处于已加载状态")
	}
	if svc.CharacterCount() != 0 {
		t.Fatal("加载失败后不应保留部分加载的角色数据")
	}
	if svc.LastError() == nil {
		t.Fatal("加载失败后 LastError 应该非空")
	}
}

func TestLoadDataRetryAfterFailure(t *testing.T) {
	failing := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path == "/characters.json" {
			w.Write([]byte(testCharactersJSON))
		} else {
			w.Write([]byte(testScenesJSON))
		}
	}))
	defer server.Close()

	svc := NewCatalogService(server.URL+"/characters.json", server.URL+"/scenes.json")

	if err := svc.LoadData(context.Background()); err == nil {
		t.Fatal("第一次加载应该失败")
	}

	failing = false
	if err := svc.LoadData(context.Background()); err != nil {
		t.Fatalf("重试加载应该成功: %v", err)
	}
	if !svc.Loaded() {
		t.Fatal("重试成功后目录应处于已加载状态")
	}
	if svc.LastError() != nil {
		t.Fatal("重试成功后 LastError 应该被清空")
	}
	if svc.CharacterCount() != 3 || svc.SceneCount() != 3 {
		t.Fatalf("重试成功后目录数量不正确: %d 个角色, %d 个场景",
			svc.CharacterCount(), svc.SceneCount())
	}
}

func TestLoadDataMalformedDocument(t *testing.T) {
	tempDir := t.TempDir()
	charactersPath := filepath.Join(tempDir, "characters.json")
	scenesPath := filepath.Join(tempDir, "scenes.json")

	os.WriteFile(charactersPath, []byte("{not valid json"), 0644)
	os.WriteFile(scenesPath, []byte(testScenesJSON), 0644)

	svc := NewCatalogService(charactersPath, scenesPath)
	if err := svc.LoadData(context.Background()); err == nil {
		t.Fatal("解析失败时 LoadData 应该返回错误")
	}
	if svc.Loaded() {
		t.Fatal("解析失败后目录不应处于已加载状态")
	}
}
