// Package stages provides the pipeline stages bounded context module.
package stages

import (
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/internal/stages/handler"
	"leadpipe_backend/internal/stages/repository"
	"leadpipe_backend/internal/stages/service"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the stages bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the stages module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "stages"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts stage routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/stages"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
