// Package reporting provides the reporting bounded context: the Redis
// partitions written by the leads module and the report endpoints.
package reporting

import (
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/internal/reporting/handler"
	"leadpipe_backend/internal/reporting/repository"
	"leadpipe_backend/internal/reporting/service"
	"leadpipe_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module is the reporting bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	store   *repository.Store
}

// NewModule creates the reporting module over a Redis client.
func NewModule(rdb redis.Cmdable, stages service.StageLister, log *logger.Logger) *Module {
	store := repository.New(rdb)
	return &Module{
		handler: handler.New(service.New(store, stages, log)),
		store:   store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reporting"
}

// Store returns the partition store. The leads module writes through it.
func (m *Module) Store() *repository.Store {
	return m.store
}

// RegisterRoutes mounts report routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/reports"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
