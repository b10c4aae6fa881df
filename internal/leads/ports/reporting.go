// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the Leads domain based on what it needs,
// rather than what other domains choose to offer.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reporter maintains the reporting partitions for a lead. Every method is a
// single independent write; callers treat failures as best-effort.
// createdAt is the lead's immutable creation time and identifies the row.
type Reporter interface {
	AddToStage(ctx context.Context, organizationID, stageID, leadID uuid.UUID, createdAt time.Time) error
	RemoveFromStage(ctx context.Context, organizationID, stageID, leadID uuid.UUID, createdAt time.Time) error
	AddToOwner(ctx context.Context, organizationID, ownerID, leadID uuid.UUID, createdAt time.Time) error
	RemoveFromOwner(ctx context.Context, organizationID, ownerID, leadID uuid.UUID, createdAt time.Time) error
	// RecordTransition appends one row to the day bucket of changedAt.
	RecordTransition(ctx context.Context, organizationID, leadID, toStageID uuid.UUID, changedAt time.Time) error
}
