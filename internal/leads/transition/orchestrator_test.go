package transition

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"leadpipe_backend/internal/leads/indexing"
	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/platform/apperr"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStages struct {
	known map[uuid.UUID]bool
	err   error
}

func (f *fakeStages) StageExists(_ context.Context, _, stageID uuid.UUID) (bool, error) {
	return f.known[stageID], f.err
}

type fakeReporter struct {
	mu         sync.Mutex
	byStage    map[uuid.UUID]map[uuid.UUID]bool
	dayBuckets []uuid.UUID
	failStage  error
	failDay    error
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{byStage: map[uuid.UUID]map[uuid.UUID]bool{}}
}

func (f *fakeReporter) AddToStage(_ context.Context, _, stageID, leadID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStage != nil {
		return f.failStage
	}
	if f.byStage[stageID] == nil {
		f.byStage[stageID] = map[uuid.UUID]bool{}
	}
	f.byStage[stageID][leadID] = true
	return nil
}

func (f *fakeReporter) RemoveFromStage(_ context.Context, _, stageID, leadID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStage != nil {
		return f.failStage
	}
	delete(f.byStage[stageID], leadID)
	return nil
}

func (f *fakeReporter) AddToOwner(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

func (f *fakeReporter) RemoveFromOwner(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

func (f *fakeReporter) RecordTransition(_ context.Context, _, _, toStageID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDay != nil {
		return f.failDay
	}
	f.dayBuckets = append(f.dayBuckets, toStageID)
	return nil
}

func (f *fakeReporter) count(stageID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byStage[stageID])
}

type fixture struct {
	store    *repository.Memory
	stages   *fakeStages
	reporter *fakeReporter
	orch     *Orchestrator
	org      uuid.UUID
	actor    uuid.UUID
	s1, s2   uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:    repository.NewMemory(),
		reporter: newFakeReporter(),
		org:      uuid.New(),
		actor:    uuid.New(),
		s1:       uuid.New(),
		s2:       uuid.New(),
	}
	f.stages = &fakeStages{known: map[uuid.UUID]bool{f.s1: true, f.s2: true}}
	log := logger.Discard()
	f.orch = New(f.store, f.store, f.stages, indexing.New(f.store, log), f.reporter, log)
	return f
}

func (f *fixture) seedLead(t *testing.T, stage *uuid.UUID) repository.Lead {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	lead := repository.Lead{ID: uuid.New(), OrganizationID: f.org, StageID: stage, CreatedAt: now, UpdatedAt: now}
	if err := f.store.Create(ctx, lead); err != nil {
		t.Fatalf("create: %v", err)
	}
	if stage != nil {
		_ = f.store.InsertIndexRow(ctx, repository.IndexKey{Table: repository.IndexByStage, OrganizationID: f.org, Value: stage.String(), CreatedAt: now, LeadID: lead.ID})
		_ = f.reporter.AddToStage(ctx, f.org, *stage, lead.ID, now)
	}
	return lead
}

func TestTransitionMovesIndexReportAndJourney(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lead := f.seedLead(t, &f.s1)
	notes := "qualified on call"

	updated, err := f.orch.Transition(ctx, f.org, lead.ID, f.s2, f.actor, &notes)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.StageID == nil || *updated.StageID != f.s2 {
		t.Fatalf("expected stage %s, got %v", f.s2, updated.StageID)
	}

	if f.reporter.count(f.s1) != 0 || f.reporter.count(f.s2) != 1 {
		t.Fatalf("unexpected stage counts s1=%d s2=%d", f.reporter.count(f.s1), f.reporter.count(f.s2))
	}
	if ids := f.store.IndexedIDs(repository.IndexByStage, f.org, f.s1.String()); len(ids) != 0 {
		t.Fatalf("expected s1 index empty, got %v", ids)
	}
	if ids := f.store.IndexedIDs(repository.IndexByStage, f.org, f.s2.String()); len(ids) != 1 || ids[0] != lead.ID {
		t.Fatalf("expected lead in s2 index, got %v", ids)
	}
	if len(f.reporter.dayBuckets) != 1 || f.reporter.dayBuckets[0] != f.s2 {
		t.Fatalf("expected one day bucket row for s2, got %v", f.reporter.dayBuckets)
	}

	journey, err := f.orch.Journey(ctx, f.org, lead.ID)
	if err != nil {
		t.Fatalf("journey: %v", err)
	}
	if len(journey) != 1 {
		t.Fatalf("expected 1 journey entry, got %d", len(journey))
	}
	entry := journey[0]
	if entry.FromStageID == nil || *entry.FromStageID != f.s1 || entry.ToStageID != f.s2 || entry.ChangedBy != f.actor {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Notes == nil || *entry.Notes != notes {
		t.Fatalf("expected notes to be recorded, got %v", entry.Notes)
	}
	if !strings.HasPrefix(entry.TransitionID, lead.ID.String()+"_") {
		t.Fatalf("unexpected transition id %q", entry.TransitionID)
	}
}

func TestTransitionUnknownLeadIsNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.orch.Transition(context.Background(), f.org, uuid.New(), f.s1, f.actor, nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if f.store.Calls(repository.OpAppendJourney) != 0 {
		t.Fatal("journey must not be written for a missing lead")
	}
}

func TestTransitionUnknownStageIsInvalidStage(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(t, &f.s1)

	_, err := f.orch.Transition(context.Background(), f.org, lead.ID, uuid.New(), f.actor, nil)
	if !apperr.Is(err, apperr.KindInvalidStage) {
		t.Fatalf("expected InvalidStage, got %v", err)
	}
	if f.store.Calls(repository.OpAppendJourney) != 0 || f.store.Calls(repository.OpUpdateStage) != 0 {
		t.Fatal("invalid stage must not write the journey or the lead")
	}
	stored, _ := f.store.GetByID(context.Background(), f.org, lead.ID)
	if *stored.StageID != f.s1 {
		t.Fatal("lead stage must be unchanged")
	}
}

func TestTransitionOutOfFinalStageIsAllowed(t *testing.T) {
	f := newFixture()
	// The stage reader knows nothing about is_final; any existing stage is a valid target.
	lead := f.seedLead(t, &f.s2)
	if _, err := f.orch.Transition(context.Background(), f.org, lead.ID, f.s1, f.actor, nil); err != nil {
		t.Fatalf("expected transition out of any stage to succeed, got %v", err)
	}
}

func TestTransitionJourneyFailureAborts(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(t, &f.s1)
	f.store.FailOn(repository.OpAppendJourney, errors.New("unavailable"))

	_, err := f.orch.Transition(context.Background(), f.org, lead.ID, f.s2, f.actor, nil)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected Internal, got %v", err)
	}
	if f.store.Calls(repository.OpUpdateStage) != 0 {
		t.Fatal("lead must not be updated when the journey write fails")
	}
	if f.reporter.count(f.s2) != 0 {
		t.Fatal("reporting must not move when the journey write fails")
	}
}

func TestTransitionSecondaryFailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(t, &f.s1)
	f.store.FailOn(repository.OpInsertIndex, errors.New("index write timeout"))
	f.reporter.failDay = errors.New("redis down")

	updated, err := f.orch.Transition(context.Background(), f.org, lead.ID, f.s2, f.actor, nil)
	if err != nil {
		t.Fatalf("secondary failures must not fail the transition, got %v", err)
	}
	if *updated.StageID != f.s2 {
		t.Fatal("expected primary row to carry the new stage")
	}
	journey, _ := f.orch.Journey(context.Background(), f.org, lead.ID)
	if len(journey) != 1 {
		t.Fatalf("journey is kept even when side effects fail, got %d entries", len(journey))
	}
}

func TestJourneyIsNewestFirstAndImmutable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lead := f.seedLead(t, nil)

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.orch.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	if _, err := f.orch.Transition(ctx, f.org, lead.ID, f.s1, f.actor, nil); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	first, _ := f.orch.Journey(ctx, f.org, lead.ID)

	if _, err := f.orch.Transition(ctx, f.org, lead.ID, f.s2, f.actor, nil); err != nil {
		t.Fatalf("second transition: %v", err)
	}
	journey, _ := f.orch.Journey(ctx, f.org, lead.ID)

	if len(journey) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(journey))
	}
	if journey[0].ToStageID != f.s2 || journey[1].ToStageID != f.s1 {
		t.Fatalf("expected newest first, got %v then %v", journey[0].ToStageID, journey[1].ToStageID)
	}
	if journey[1].FromStageID != nil {
		t.Fatal("first transition has no from stage")
	}
	if journey[1] != first[0] {
		t.Fatal("earlier entry changed after a later transition")
	}
}

func TestTransitionsWithinOneMillisecondKeepDistinctIDs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lead := f.seedLead(t, &f.s1)

	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(300 * time.Microsecond)}
	f.orch.now = func() time.Time {
		next := times[0]
		times = times[1:]
		return next
	}

	if _, err := f.orch.Transition(ctx, f.org, lead.ID, f.s2, f.actor, nil); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if _, err := f.orch.Transition(ctx, f.org, lead.ID, f.s1, f.actor, nil); err != nil {
		t.Fatalf("second transition: %v", err)
	}

	journey, err := f.orch.Journey(ctx, f.org, lead.ID)
	if err != nil {
		t.Fatalf("journey: %v", err)
	}
	if len(journey) != 2 {
		t.Fatalf("expected 2 journey entries, got %d", len(journey))
	}
	if journey[0].TransitionID == journey[1].TransitionID {
		t.Fatalf("transitions share id %q", journey[0].TransitionID)
	}
	if journey[0].ToStageID != f.s1 || journey[1].ToStageID != f.s2 {
		t.Fatalf("expected newest first, got %+v", journey)
	}
}

func TestTransitionIDCarriesMicrosecondsAndSuffix(t *testing.T) {
	leadID := uuid.New()
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	a, b := transitionID(leadID, at), transitionID(leadID, at)
	if a == b {
		t.Fatalf("same-instant transitions share id %q", a)
	}
	if !strings.HasPrefix(a, leadID.String()+"_1792314000000000_") {
		t.Fatalf("unexpected id layout %q", a)
	}
}
