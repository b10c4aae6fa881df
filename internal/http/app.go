package http

import (
	"context"

	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is what the router reads from configuration.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is pinged by /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by cmd/api and handed to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health lists named dependencies; any failing ping degrades the endpoint.
	Health map[string]HealthChecker
	// AuditMiddleware records successful mutations; nil disables auditing.
	AuditMiddleware gin.HandlerFunc
	Modules         []Module
}
