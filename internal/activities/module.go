// Package activities records calls, emails, notes, meetings and tasks
// against leads.
package activities

import (
	"leadpipe_backend/internal/activities/handler"
	"leadpipe_backend/internal/activities/repository"
	"leadpipe_backend/internal/activities/service"
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
	return "activities"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
