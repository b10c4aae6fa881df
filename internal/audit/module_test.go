package audit

import (
	"context"
	"errors"
	"testing"

	"leadpipe_backend/internal/audit/repository"
	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/validator"

	"github.com/google/uuid"
)

type memStore struct{ entries []repository.Entry }

func (m *memStore) Insert(_ context.Context, e repository.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) List(context.Context, uuid.UUID, repository.Filter) (repository.Page, error) {
	return repository.Page{Items: m.entries}, nil
}

type fakeQueue struct {
	err    error
	queued []events.ActionPerformed
}

func (q *fakeQueue) EnqueueAuditRecord(_ context.Context, a events.ActionPerformed) error {
	if q.err != nil {
		return q.err
	}
	q.queued = append(q.queued, a)
	return nil
}

func newTestModule() (*Module, *memStore) {
	store := &memStore{}
	bus := events.NewInMemoryBus(logger.Discard())
	return newModule(store, bus, validator.New(), logger.Discard()), store
}

func TestHandleWritesInlineWithoutQueue(t *testing.T) {
	m, store := newTestModule()

	err := m.Handle(context.Background(), events.ActionPerformed{OrganizationID: uuid.New(), Action: "create", EntityType: "lead"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected inline write, got %d entries", len(store.entries))
	}
}

func TestHandlePrefersQueueAndFallsBack(t *testing.T) {
	m, store := newTestModule()
	q := &fakeQueue{}
	m.SetQueue(q)

	action := events.ActionPerformed{OrganizationID: uuid.New(), Action: "delete", EntityType: "lead"}
	if err := m.Handle(context.Background(), action); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.queued) != 1 || len(store.entries) != 0 {
		t.Fatalf("expected queued record only, got queued=%d stored=%d", len(q.queued), len(store.entries))
	}

	q.err = errors.New("redis down")
	if err := m.Handle(context.Background(), action); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected fallback write, got %d entries", len(store.entries))
	}
}

func TestHandleRecordsUserRegistration(t *testing.T) {
	m, store := newTestModule()
	user := uuid.New()

	err := m.Handle(context.Background(), events.UserRegistered{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: uuid.New(),
		UserID:         user,
		Email:          "ada@example.com",
		Role:           "sales",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	got := store.entries[0]
	if got.EntityType != "user" || got.Action != "register" || got.EntityID != user.String() {
		t.Fatalf("unexpected entry %+v", got)
	}
}
