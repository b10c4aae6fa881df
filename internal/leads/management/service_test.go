package management

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadpipe_backend/internal/leads/indexing"
	"leadpipe_backend/internal/leads/query"
	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/internal/leads/transition"
	"leadpipe_backend/internal/leads/transport"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStages struct{ known map[uuid.UUID]bool }

func (f fakeStages) StageExists(_ context.Context, _, id uuid.UUID) (bool, error) {
	return f.known[id], nil
}

type reportKey struct {
	kind string
	key  uuid.UUID
}

type fakeReporter struct {
	mu      sync.Mutex
	sets    map[reportKey]map[uuid.UUID]bool
	days    int
	failAll error
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{sets: map[reportKey]map[uuid.UUID]bool{}}
}

func (f *fakeReporter) add(kind string, key, lead uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	k := reportKey{kind, key}
	if f.sets[k] == nil {
		f.sets[k] = map[uuid.UUID]bool{}
	}
	f.sets[k][lead] = true
	return nil
}

func (f *fakeReporter) remove(kind string, key, lead uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.sets[reportKey{kind, key}], lead)
	return nil
}

func (f *fakeReporter) AddToStage(_ context.Context, _, stage, lead uuid.UUID, _ time.Time) error {
	return f.add("stage", stage, lead)
}
func (f *fakeReporter) RemoveFromStage(_ context.Context, _, stage, lead uuid.UUID, _ time.Time) error {
	return f.remove("stage", stage, lead)
}
func (f *fakeReporter) AddToOwner(_ context.Context, _, owner, lead uuid.UUID, _ time.Time) error {
	return f.add("owner", owner, lead)
}
func (f *fakeReporter) RemoveFromOwner(_ context.Context, _, owner, lead uuid.UUID, _ time.Time) error {
	return f.remove("owner", owner, lead)
}
func (f *fakeReporter) RecordTransition(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.days++
	return nil
}

func (f *fakeReporter) count(kind string, key uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets[reportKey{kind, key}])
}

type pageConfig struct{}

func (pageConfig) GetLeadsDefaultPageSize() int { return 20 }
func (pageConfig) GetLeadsMaxPageSize() int     { return 100 }
func (pageConfig) GetHydrationConcurrency() int { return 4 }

type env struct {
	svc      *Service
	store    *repository.Memory
	reporter *fakeReporter
	org      uuid.UUID
	actor    uuid.UUID
	s1, s2   uuid.UUID
}

func newEnv() *env {
	e := &env{
		store:    repository.NewMemory(),
		reporter: newFakeReporter(),
		org:      uuid.New(),
		actor:    uuid.New(),
		s1:       uuid.New(),
		s2:       uuid.New(),
	}
	log := logger.Discard()
	stages := fakeStages{known: map[uuid.UUID]bool{e.s1: true, e.s2: true}}
	idx := indexing.New(e.store, log)
	orch := transition.New(e.store, e.store, stages, idx, e.reporter, log)
	router := query.New(e.store, pageConfig{}, log)
	e.svc = New(e.store, idx, orch, router, stages, e.reporter, log)
	return e
}

func strPtr(s string) *string { return &s }

func (e *env) list(t *testing.T, req transport.ListLeadsRequest) []uuid.UUID {
	t.Helper()
	resp, err := e.svc.List(context.Background(), e.org, req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]uuid.UUID, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestCreateDefaultsOwnerAndWritesViews(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	assignee := uuid.New()

	lead, err := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{
		FirstName:  strPtr("  Ada "),
		Email:      strPtr("Ada@Example.com"),
		StageID:    &e.s1,
		Status:     strPtr("open"),
		AssignedTo: &assignee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.OwnerID == nil || *lead.OwnerID != e.actor {
		t.Fatalf("expected owner to default to actor, got %v", lead.OwnerID)
	}
	if *lead.FirstName != "Ada" || *lead.Email != "ada@example.com" {
		t.Fatalf("expected normalized fields, got %q %q", *lead.FirstName, *lead.Email)
	}
	if lead.CreatedAt.Nanosecond()%1000 != 0 {
		t.Fatal("created_at must be truncated to microseconds")
	}

	for _, table := range repository.IndexTables {
		if n := e.store.IndexRowCount(table, lead.ID); n != 1 {
			t.Fatalf("%s: expected 1 row, got %d", table, n)
		}
	}
	if e.reporter.count("stage", e.s1) != 1 || e.reporter.count("owner", e.actor) != 1 {
		t.Fatal("expected stage and owner reporting rows")
	}
}

func TestCreateWithUnknownStageIsInvalidStage(t *testing.T) {
	e := newEnv()
	unknown := uuid.New()
	_, err := e.svc.Create(context.Background(), e.org, e.actor, transport.CreateLeadRequest{StageID: &unknown})
	if !apperr.Is(err, apperr.KindInvalidStage) {
		t.Fatalf("expected InvalidStage, got %v", err)
	}
	if e.store.Calls(repository.OpCreate) != 0 {
		t.Fatal("lead must not be written")
	}
}

func TestIndexFailuresDoNotFailRequests(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.store.FailOn(repository.OpInsertIndex, errors.New("index unavailable"))
	e.reporter.failAll = errors.New("redis unavailable")

	lead, err := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{Status: strPtr("open")})
	if err != nil {
		t.Fatalf("create must succeed despite index failures: %v", err)
	}

	e.store.FailOn(repository.OpDeleteIndex, errors.New("index unavailable"))
	if _, err := e.svc.Update(ctx, e.org, lead.ID, e.actor, transport.UpdateLeadRequest{
		Status: transport.OptionalString{Value: strPtr("won"), Set: true},
	}); err != nil {
		t.Fatalf("update must succeed despite index failures: %v", err)
	}
	if err := e.svc.Delete(ctx, e.org, lead.ID); err != nil {
		t.Fatalf("delete must succeed despite index failures: %v", err)
	}
}

func TestUpdateReindexesChangedAttribute(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()

	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{AssignedTo: &u1})
	if _, err := e.svc.Update(ctx, e.org, lead.ID, e.actor, transport.UpdateLeadRequest{
		AssignedTo: transport.OptionalUUID{Value: &u2, Set: true},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if ids := e.list(t, transport.ListLeadsRequest{AssignedTo: u2.String()}); len(ids) != 1 || ids[0] != lead.ID {
		t.Fatalf("expected lead under new assignee, got %v", ids)
	}
	if ids := e.list(t, transport.ListLeadsRequest{AssignedTo: u1.String()}); len(ids) != 0 {
		t.Fatalf("expected no lead under old assignee, got %v", ids)
	}
}

func TestStaleAssigneeRowIsMaskedOnRead(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()

	stays, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{AssignedTo: &u1})
	moves, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{AssignedTo: &u1})

	// The old row survives because the delete fails.
	e.store.FailOn(repository.OpDeleteIndex, errors.New("timeout"))
	if _, err := e.svc.Update(ctx, e.org, moves.ID, e.actor, transport.UpdateLeadRequest{
		AssignedTo: transport.OptionalUUID{Value: &u2, Set: true},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if n := e.store.IndexRowCount(repository.IndexByAssigned, moves.ID); n != 2 {
		t.Fatalf("expected a stale duplicate row, got %d", n)
	}

	ids := e.list(t, transport.ListLeadsRequest{AssignedTo: u1.String()})
	if len(ids) != 1 || ids[0] != stays.ID {
		t.Fatalf("expected only the current u1 lead, got %v", ids)
	}
}

func TestStageScenarioCountsAndJourney(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	lead, err := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{StageID: &e.s1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.reporter.count("stage", e.s1) != 1 {
		t.Fatal("expected s1 count 1 after create")
	}

	if _, err := e.svc.Transition(ctx, e.org, lead.ID, e.actor, transport.TransitionRequest{ToStageID: e.s2}); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if e.reporter.count("stage", e.s1) != 0 || e.reporter.count("stage", e.s2) != 1 {
		t.Fatalf("unexpected counts s1=%d s2=%d", e.reporter.count("stage", e.s1), e.reporter.count("stage", e.s2))
	}

	journey, err := e.svc.Journey(ctx, e.org, lead.ID)
	if err != nil {
		t.Fatalf("journey: %v", err)
	}
	if len(journey.Items) != 1 || *journey.Items[0].FromStageID != e.s1 || journey.Items[0].ToStageID != e.s2 {
		t.Fatalf("unexpected journey %+v", journey.Items)
	}
}

func TestPatchStageRunsThroughTransition(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{StageID: &e.s1, Company: strPtr("Acme")})

	updated, err := e.svc.Update(ctx, e.org, lead.ID, e.actor, transport.UpdateLeadRequest{
		Company: strPtr("Acme Corp"),
		StageID: transport.OptionalUUID{Value: &e.s2, Set: true},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if *updated.StageID != e.s2 || *updated.Company != "Acme Corp" {
		t.Fatalf("expected both changes applied, got stage=%v company=%v", updated.StageID, *updated.Company)
	}
	journey, _ := e.svc.Journey(ctx, e.org, lead.ID)
	if len(journey.Items) != 1 {
		t.Fatalf("expected stage change to append a journey entry, got %d", len(journey.Items))
	}
	if e.reporter.days != 1 {
		t.Fatalf("expected one day bucket row, got %d", e.reporter.days)
	}
}

func TestPatchUnknownStageWritesNothing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{StageID: &e.s1})
	unknown := uuid.New()

	_, err := e.svc.Update(ctx, e.org, lead.ID, e.actor, transport.UpdateLeadRequest{
		Company: strPtr("ignored"),
		StageID: transport.OptionalUUID{Value: &unknown, Set: true},
	})
	if !apperr.Is(err, apperr.KindInvalidStage) {
		t.Fatalf("expected InvalidStage, got %v", err)
	}
	if e.store.Calls(repository.OpUpdate) != 0 {
		t.Fatal("no field may be written when the stage is invalid")
	}
}

func TestOwnerChangeMovesReportRow(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	newOwner := uuid.New()
	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{})

	if _, err := e.svc.Update(ctx, e.org, lead.ID, e.actor, transport.UpdateLeadRequest{
		OwnerID: transport.OptionalUUID{Value: &newOwner, Set: true},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if e.reporter.count("owner", e.actor) != 0 || e.reporter.count("owner", newOwner) != 1 {
		t.Fatal("expected owner row to move")
	}
}

func TestDeleteRemovesEveryViewAndIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	assignee := uuid.New()
	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{
		StageID: &e.s1, Status: strPtr("open"), AssignedTo: &assignee,
	})

	if err := e.svc.Delete(ctx, e.org, lead.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, table := range repository.IndexTables {
		if n := e.store.IndexRowCount(table, lead.ID); n != 0 {
			t.Fatalf("%s: expected no rows, got %d", table, n)
		}
	}
	if e.reporter.count("stage", e.s1) != 0 || e.reporter.count("owner", e.actor) != 0 {
		t.Fatal("expected reporting rows removed")
	}
	if _, err := e.svc.GetByID(ctx, e.org, lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if err := e.svc.Delete(ctx, e.org, lead.ID); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
}

func TestGetIsScopedByOrganization(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{})

	if _, err := e.svc.GetByID(ctx, uuid.New(), lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound from another organization, got %v", err)
	}
}

func TestRepairRestoresMissingRows(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.store.FailOn(repository.OpInsertIndex, errors.New("lost write"))
	lead, _ := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{Status: strPtr("open")})
	e.store.FailOn(repository.OpInsertIndex, nil)

	if ids := e.list(t, transport.ListLeadsRequest{Status: "open"}); len(ids) != 0 {
		t.Fatalf("expected the lead to be unindexed, got %v", ids)
	}
	if err := e.svc.Repair(ctx, e.org, lead.ID); err != nil {
		t.Fatalf("repair: %v", err)
	}
	if ids := e.list(t, transport.ListLeadsRequest{Status: "open"}); len(ids) != 1 {
		t.Fatalf("expected the lead to be indexed after repair, got %v", ids)
	}
}

func TestBlankEmailIsNullOnCreateAndClearsOnUpdate(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	blank, err := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{
		FirstName: strPtr("Grace"),
		Email:     strPtr("   "),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if blank.Email != nil {
		t.Fatalf("expected nil email, got %q", *blank.Email)
	}

	lead, err := e.svc.Create(ctx, e.org, e.actor, transport.CreateLeadRequest{
		FirstName: strPtr("Alan"),
		Email:     strPtr("alan@example.com"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := e.svc.Update(ctx, e.org, lead.ID, e.actor, transport.UpdateLeadRequest{Email: strPtr("")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != nil {
		t.Fatalf("expected email to be cleared, got %q", *updated.Email)
	}
}
