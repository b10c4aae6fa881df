// Package auth registers users and issues the access tokens the rest of the
// API authenticates with.
package auth

import (
	"leadpipe_backend/internal/auth/handler"
	"leadpipe_backend/internal/auth/repository"
	"leadpipe_backend/internal/auth/service"
	"leadpipe_backend/internal/auth/token"
	"leadpipe_backend/internal/events"
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	issuer := token.NewIssuer(cfg.GetJWTAccessSecret(), cfg.GetAccessTokenTTL())
	svc := service.New(repository.New(pool), issuer, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "auth"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the public auth routes behind the stricter limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)
}

var _ apphttp.Module = (*Module)(nil)
