// Package leads provides the lead management bounded context module.
// This file wires the repository, the view synchronization layer and the
// HTTP handler together.
package leads

import (
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/internal/leads/handler"
	"leadpipe_backend/internal/leads/indexing"
	"leadpipe_backend/internal/leads/management"
	"leadpipe_backend/internal/leads/ports"
	"leadpipe_backend/internal/leads/query"
	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/internal/leads/transition"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	management *management.Service
}

// NewModule creates the leads module. Stage lookups and reporting rows are
// owned by other modules and come in through ports.
func NewModule(pool *pgxpool.Pool, stages ports.StageReader, reporter ports.Reporter, val *validator.Validator, cfg config.QueryConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	index := indexing.New(repo, log)
	orchestrator := transition.New(repo, repo, stages, index, reporter, log)
	router := query.New(repo, cfg, log)
	mgmtSvc := management.New(repo, index, orchestrator, router, stages, reporter, log)

	return &Module{
		handler:    handler.New(mgmtSvc, val),
		repo:       repo,
		management: mgmtSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository returns the pgx store, used by adapters that need read access.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
