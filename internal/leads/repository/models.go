package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("lead not found")

// ErrDuplicateTransition is returned when a journey entry reuses a transition id.
var ErrDuplicateTransition = errors.New("duplicate transition id")

// Lead is the authoritative row per (organization, id).
type Lead struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	Company        *string
	Title          *string
	Source         *string
	StageID        *uuid.UUID
	Status         *string
	AssignedTo     *uuid.UUID
	OwnerID        *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpdateLeadParams carries a partial update. A nil pointer leaves the text
// column untouched; the *Set flags allow clearing nullable references.
// StageID is deliberately absent: stage changes go through UpdateStage.
type UpdateLeadParams struct {
	FirstName     *string
	LastName      *string
	Email         *string
	Phone         *string
	Company       *string
	Title         *string
	Source        *string
	Status        *string
	StatusSet     bool
	AssignedTo    *uuid.UUID
	AssignedToSet bool
	OwnerID       *uuid.UUID
	OwnerIDSet    bool
	UpdatedAt     time.Time
}

// IsEmpty reports whether no column would change.
func (p UpdateLeadParams) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.Company == nil && p.Title == nil && p.Source == nil &&
		!p.StatusSet && !p.AssignedToSet && !p.OwnerIDSet
}

// IndexTable names one of the denormalized lookup tables.
type IndexTable string

const (
	IndexByAssigned IndexTable = "leads_by_assigned"
	IndexByStage    IndexTable = "leads_by_stage"
	IndexByStatus   IndexTable = "leads_by_status"
)

// IndexTables lists every lookup table maintained for a lead.
var IndexTables = []IndexTable{IndexByAssigned, IndexByStage, IndexByStatus}

// IndexKey addresses exactly one index row. CreatedAt is the lead's
// immutable creation time, so a delete never needs a secondary lookup.
type IndexKey struct {
	Table          IndexTable
	OrganizationID uuid.UUID
	Value          string
	CreatedAt      time.Time
	LeadID         uuid.UUID
}

// JourneyEntry is one immutable stage-to-stage transition of a lead.
type JourneyEntry struct {
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	TransitionID   string
	FromStageID    *uuid.UUID
	ToStageID      uuid.UUID
	ChangedBy      uuid.UUID
	Notes          *string
	ChangedAt      time.Time
}

// PageRequest asks for one page of ids starting after State.
type PageRequest struct {
	Limit int
	State PageState
}

// IDPage is one page of lead ids. Next is empty on the last page.
type IDPage struct {
	IDs  []uuid.UUID
	Next PageState
}
