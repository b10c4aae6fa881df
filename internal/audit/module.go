// Package audit keeps the organization's trail of successful mutations.
package audit

import (
	"context"

	"leadpipe_backend/internal/audit/handler"
	"leadpipe_backend/internal/audit/repository"
	"leadpipe_backend/internal/audit/service"
	"leadpipe_backend/internal/events"
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queue hands audit records to the background worker.
type Queue interface {
	EnqueueAuditRecord(ctx context.Context, action events.ActionPerformed) error
}

type Module struct {
	handler *handler.Handler
	service *service.Service
	bus     events.Bus
	queue   Queue
	log     *logger.Logger
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	return newModule(repository.New(pool), bus, val, log)
}

func newModule(store repository.Store, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(store, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		bus:     bus,
		log:     log,
	}
}

// SetQueue routes records through the worker instead of writing inline.
func (m *Module) SetQueue(q Queue) {
	m.queue = q
}

func (m *Module) Name() string {
	return "audit"
}

// Middleware returns the gin middleware that publishes performed actions.
func (m *Module) Middleware() gin.HandlerFunc {
	return handler.Middleware(m.bus)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/audit"))
}

// RegisterHandlers subscribes to the events that end up in the trail.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.ActionPerformed{}.EventName(), m)
	bus.Subscribe(events.UserRegistered{}.EventName(), m)
}

// Handle records an event. A failed enqueue falls back to a direct write.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	var action events.ActionPerformed
	switch e := event.(type) {
	case events.ActionPerformed:
		action = e
	case events.UserRegistered:
		action = events.ActionPerformed{
			BaseEvent:      e.BaseEvent,
			OrganizationID: e.OrganizationID,
			ActorID:        e.UserID,
			Action:         "register",
			EntityType:     "user",
			EntityID:       e.UserID.String(),
		}
	default:
		return nil
	}

	if m.queue != nil {
		err := m.queue.EnqueueAuditRecord(ctx, action)
		if err == nil {
			return nil
		}
		m.log.Warn("audit enqueue failed, writing inline", "action", action.Action, "error", err)
	}
	return m.service.Record(ctx, action)
}

var _ apphttp.Module = (*Module)(nil)
