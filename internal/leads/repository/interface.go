package repository

import (
	"context"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to the primary lead table.
type LeadReader interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (Lead, error)
	ListIDs(ctx context.Context, organizationID uuid.UUID, page PageRequest) (IDPage, error)
	ExistsInStage(ctx context.Context, organizationID, stageID uuid.UUID) (bool, error)
}

// LeadWriter provides write operations on the primary lead table.
// Every call is a single independent statement.
type LeadWriter interface {
	Create(ctx context.Context, lead Lead) error
	Update(ctx context.Context, organizationID, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	UpdateStage(ctx context.Context, organizationID, id, stageID uuid.UUID) (Lead, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

// IndexWriter inserts and deletes single index rows.
// Both operations are idempotent.
type IndexWriter interface {
	InsertIndexRow(ctx context.Context, key IndexKey) error
	DeleteIndexRow(ctx context.Context, key IndexKey) error
}

// IndexReader pages lead ids out of one index partition.
type IndexReader interface {
	ListIndexIDs(ctx context.Context, table IndexTable, organizationID uuid.UUID, value string, page PageRequest) (IDPage, error)
}

// JourneyStore appends and lists journey entries. There is no update or delete.
type JourneyStore interface {
	AppendJourney(ctx context.Context, entry JourneyEntry) error
	ListJourney(ctx context.Context, organizationID, leadID uuid.UUID, limit int) ([]JourneyEntry, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository is everything the leads module needs from the store.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	IndexWriter
	IndexReader
	JourneyStore
}

var (
	_ LeadsRepository = (*Repository)(nil)
	_ LeadsRepository = (*Memory)(nil)
)
