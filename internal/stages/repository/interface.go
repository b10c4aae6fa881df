package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("stage not found")

// Stage is one step of an organization's pipeline.
type Stage struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Description    *string
	IsFinal        bool
	Order          int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpdateParams carries the fields of a partial update. Nil means unchanged.
type UpdateParams struct {
	Name        *string
	Description *string
	IsFinal     *bool
	Order       *int
	UpdatedAt   time.Time
}

// StageReader provides read operations for stages.
type StageReader interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (Stage, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]Stage, error)
	Exists(ctx context.Context, organizationID, id uuid.UUID) (bool, error)
}

// StageWriter provides write operations for stages.
type StageWriter interface {
	Create(ctx context.Context, stage Stage) error
	Update(ctx context.Context, organizationID, id uuid.UUID, params UpdateParams) (Stage, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

// Repository combines all stage repository operations.
type Repository interface {
	StageReader
	StageWriter
}
