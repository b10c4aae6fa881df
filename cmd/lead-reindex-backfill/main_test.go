package main

import (
	"context"
	"errors"
	"testing"

	"leadpipe_backend/platform/logger"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type pagedIDs struct {
	pages  [][]uuid.UUID
	states []string
	err    error
}

func (p *pagedIDs) ListIDs(_ context.Context, _ uuid.UUID, _ int, state string) ([]uuid.UUID, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	p.states = append(p.states, state)
	idx := len(p.states) - 1
	next := ""
	if idx+1 < len(p.pages) {
		next = "page-" + string(rune('a'+idx))
	}
	return p.pages[idx], next, nil
}

func TestParseOptions(t *testing.T) {
	org := uuid.New()
	opts, err := parseOptions([]string{"--org", org.String(), "--batch-size", "25", "--enqueue"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts.orgs) != 1 || opts.orgs[0] != org || opts.batchSize != 25 || !opts.enqueue {
		t.Fatalf("unexpected options %+v", opts)
	}

	for _, args := range [][]string{
		{},
		{"--org", "not-a-uuid"},
		{"--org", org.String(), "--batch-size", "0"},
	} {
		if _, err := parseOptions(args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestBackfillWalksEveryPage(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	pager := &pagedIDs{pages: [][]uuid.UUID{{a, b}, {c}}}

	var repaired []uuid.UUID
	repair := func(_ context.Context, _, id uuid.UUID) error {
		repaired = append(repaired, id)
		if id == b {
			return errors.New("index down")
		}
		return nil
	}

	s, err := backfill(context.Background(), pager, repair, uuid.New(), options{batchSize: 2}, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.processed != 3 || s.failed != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if diff := cmp.Diff([]uuid.UUID{a, b, c}, repaired); diff != "" {
		t.Fatalf("repaired mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "page-a"}, pager.states); diff != "" {
		t.Fatalf("page states mismatch (-want +got):\n%s", diff)
	}
}

func TestBackfillDryRunWritesNothing(t *testing.T) {
	pager := &pagedIDs{pages: [][]uuid.UUID{{uuid.New()}}}
	repair := func(context.Context, uuid.UUID, uuid.UUID) error {
		t.Fatal("repair must not run in dry-run mode")
		return nil
	}

	s, err := backfill(context.Background(), pager, repair, uuid.New(), options{batchSize: 10, dryRun: true}, logger.Discard())
	if err != nil || s.processed != 1 {
		t.Fatalf("unexpected result %+v, %v", s, err)
	}
}

func TestBackfillStopsOnListFailure(t *testing.T) {
	pager := &pagedIDs{err: errors.New("primary down")}
	_, err := backfill(context.Background(), pager, func(context.Context, uuid.UUID, uuid.UUID) error { return nil }, uuid.New(), options{batchSize: 10}, logger.Discard())
	if err == nil {
		t.Fatal("expected list failure to stop the backfill")
	}
}
