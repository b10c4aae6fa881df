// Package indexing keeps the by-assignee, by-stage and by-status lookup
// tables in step with the primary lead row.
//
// The store has no multi-row transactions, so every change is expressed as
// independent delete and insert statements. Per table the delete runs
// before the insert to keep the duplicate window short; tables are written
// in parallel because they do not depend on each other. A failed write is
// logged and returned, never retried: the primary row has already
// committed and the query router masks stale rows on read.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadpipe_backend/internal/leads/repository"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Snapshot holds the indexed attributes of a lead at one point in time.
// Empty strings mean "not set".
type Snapshot struct {
	AssignedTo string
	StageID    string
	Status     string
	CreatedAt  time.Time
}

// SnapshotOf captures the indexed attributes of lead.
func SnapshotOf(lead repository.Lead) Snapshot {
	s := Snapshot{CreatedAt: lead.CreatedAt}
	if lead.AssignedTo != nil {
		s.AssignedTo = lead.AssignedTo.String()
	}
	if lead.StageID != nil {
		s.StageID = lead.StageID.String()
	}
	if lead.Status != nil {
		s.Status = *lead.Status
	}
	return s
}

// Value returns the snapshot's value for table.
func (s Snapshot) Value(table repository.IndexTable) string {
	switch table {
	case repository.IndexByAssigned:
		return s.AssignedTo
	case repository.IndexByStage:
		return s.StageID
	case repository.IndexByStatus:
		return s.Status
	default:
		return ""
	}
}

// WriteError describes one failed index statement.
type WriteError struct {
	Table repository.IndexTable
	Op    string
	Value string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.Table, e.Value, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

const (
	opDelete = "delete"
	opInsert = "insert"
)

// Maintainer computes and applies index row changes.
type Maintainer struct {
	store repository.IndexWriter
	log   *logger.Logger
}

func New(store repository.IndexWriter, log *logger.Logger) *Maintainer {
	return &Maintainer{store: store, log: log}
}

type change struct {
	table    repository.IndexTable
	previous string
	next     string
}

// Reindex moves every lookup table from prev to next. The rows are keyed by
// prev.CreatedAt because creation time never changes; next.CreatedAt is used
// only when prev is the empty snapshot of a brand new lead.
// The returned error joins every failed statement.
func (m *Maintainer) Reindex(ctx context.Context, organizationID, leadID uuid.UUID, prev, next Snapshot) error {
	createdAt := prev.CreatedAt
	if createdAt.IsZero() {
		createdAt = next.CreatedAt
	}

	changes := make([]change, 0, len(repository.IndexTables))
	for _, table := range repository.IndexTables {
		changes = append(changes, change{table: table, previous: prev.Value(table), next: next.Value(table)})
	}
	return m.apply(ctx, organizationID, leadID, createdAt, changes)
}

// ReindexTable moves a single lookup table from previous to next.
func (m *Maintainer) ReindexTable(ctx context.Context, table repository.IndexTable, organizationID, leadID uuid.UUID, createdAt time.Time, previous, next string) error {
	return m.apply(ctx, organizationID, leadID, createdAt, []change{{table: table, previous: previous, next: next}})
}

// Remove deletes the index rows for the values held at deletion time.
func (m *Maintainer) Remove(ctx context.Context, organizationID, leadID uuid.UUID, current Snapshot) error {
	return m.Reindex(ctx, organizationID, leadID, current, Snapshot{CreatedAt: current.CreatedAt})
}

// Ensure re-inserts the rows for the current values without deleting
// anything. Inserts are idempotent, so this is safe to repeat.
func (m *Maintainer) Ensure(ctx context.Context, organizationID, leadID uuid.UUID, current Snapshot) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for _, table := range repository.IndexTables {
		value := current.Value(table)
		if value == "" {
			continue
		}
		g.Go(func() error {
			if err := m.write(ctx, opInsert, table, organizationID, leadID, current.CreatedAt, value); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *Maintainer) apply(ctx context.Context, organizationID, leadID uuid.UUID, createdAt time.Time, changes []change) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, c := range changes {
		if c.previous == c.next {
			continue
		}
		g.Go(func() error {
			// Both halves are attempted even if the delete fails.
			if c.previous != "" {
				if err := m.write(ctx, opDelete, c.table, organizationID, leadID, createdAt, c.previous); err != nil {
					record(err)
				}
			}
			if c.next != "" {
				if err := m.write(ctx, opInsert, c.table, organizationID, leadID, createdAt, c.next); err != nil {
					record(err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *Maintainer) write(ctx context.Context, op string, table repository.IndexTable, organizationID, leadID uuid.UUID, createdAt time.Time, value string) error {
	key := repository.IndexKey{
		Table:          table,
		OrganizationID: organizationID,
		Value:          value,
		CreatedAt:      createdAt,
		LeadID:         leadID,
	}

	var err error
	if op == opDelete {
		err = m.store.DeleteIndexRow(ctx, key)
	} else {
		err = m.store.InsertIndexRow(ctx, key)
	}
	if err == nil {
		return nil
	}

	m.log.WithContext(ctx).IndexWriteFailed(string(table), op, leadID.String(), err)
	return &WriteError{Table: table, Op: op, Value: value, Err: err}
}
