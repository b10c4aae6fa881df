// Package customfields provides organization-defined fields on leads.
package customfields

import (
	"leadpipe_backend/internal/customfields/handler"
	"leadpipe_backend/internal/customfields/repository"
	"leadpipe_backend/internal/customfields/service"
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, leads service.LeadChecker, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), leads, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "customfields"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterDefinitionRoutes(ctx.Protected.Group("/custom-fields"))
	m.handler.RegisterValueRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
