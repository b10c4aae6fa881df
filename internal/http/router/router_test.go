package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type routerConfig struct{}

func (routerConfig) GetHTTPAddr() string        { return ":0" }
func (routerConfig) GetCORSAllowAll() bool      { return false }
func (routerConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (routerConfig) GetCORSAllowCreds() bool    { return true }
func (routerConfig) GetJWTAccessSecret() string { return "secret" }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type recordingModule struct{ registered bool }

func (m *recordingModule) Name() string { return "recording" }
func (m *recordingModule) RegisterRoutes(rc *apphttp.RouterContext) {
	m.registered = true
	rc.Protected.GET("/secret", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func TestHealthReportsDegradedDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := New(&apphttp.App{
		Config: routerConfig{},
		Logger: logger.Discard(),
		Health: map[string]apphttp.HealthChecker{
			"postgres": pingFunc(func(context.Context) error { return nil }),
			"redis":    pingFunc(func(context.Context) error { return errors.New("refused") }),
		},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestModulesMountBehindAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mod := &recordingModule{}
	engine := New(&apphttp.App{
		Config:  routerConfig{},
		Logger:  logger.Discard(),
		Modules: []apphttp.Module{mod},
	})

	if !mod.registered {
		t.Fatal("expected module to register routes")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/secret", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
