// internal/app/app_test.go
package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/config"
	"github.com/CardiffAirportTV/VEO3StudioMCP/internal/di"
)

// setTestEnv 把应用配置指向临时目录
func setTestEnv(t *testing.T) {
	t.Helper()

	base := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(base, "data"))
	t.Setenv("STATIC_DIR", filepath.Join(base, "static"))
	t.Setenv("LOG_DIR", filepath.Join(base, "logs"))
	t.Setenv("CHARACTERS_SOURCE", "data/characters.json")
	t.Setenv("SCENES_SOURCE", "data/scenes.json")
	t.Setenv("DIALOGUES_SOURCE", "data/dialogues")
}

// stubServer 替换真实HTTP服务器，记录关闭调用
type stubServer struct {
	mu       sync.Mutex
	shutdown bool
}

func (s *stubServer) ListenAndServe() error { return http.ErrServerClosed }

func (s *stubServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	return nil
}

func (s *stubServer) shutdownCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func TestGetAppSingleton(t *testing.T) {
	if GetApp() != GetApp() {
		t.Fatal("GetApp 应返回同一实例")
	}
}

func TestInitializeWiresConfigServicesAndRouter(t *testing.T) {
	setTestEnv(t)
	instance = &App{stopChan: make(chan os.Signal, 1)}
	defer di.GetContainer().Clear()

	routerCalled := false
	err := Initialize(func() (http.Handler, error) {
		routerCalled = true
		return http.NewServeMux(), nil
	})
	if err != nil {
		t.Fatalf("初始化应用失败: %v", err)
	}

	if !routerCalled {
		t.Fatal("初始化应调用路由构建函数")
	}
	if GetApp().GetConfig() == nil {
		t.Fatal("初始化后应用配置不应为空")
	}
	if GetApp().router == nil {
		t.Fatal("初始化后路由不应为空")
	}

	for _, name := range []string{"storage", "catalog", "session", "dialogue", "prompt", "project", "stats", "config"} {
		if !di.GetContainer().Has(name) {
			t.Fatalf("服务未注册到容器: %s", name)
		}
	}
}

func TestRunStopsOnSignalAndCleansUp(t *testing.T) {
	srv := &stubServer{}
	instance = &App{
		config:   &config.AppConfig{Port: "0"},
		router:   http.NewServeMux(),
		server:   srv,
		stopChan: make(chan os.Signal, 1),
	}
	di.GetContainer().Register("sentinel", struct{}{})

	instance.stopChan <- syscall.SIGTERM

	if err := Run(); err != nil {
		t.Fatalf("运行应用失败: %v", err)
	}

	if !srv.shutdownCalled() {
		t.Fatal("收到停止信号后应关闭HTTP服务器")
	}
	if di.GetContainer().Get("sentinel") != nil {
		t.Fatal("清理后容器应被清空")
	}
}
