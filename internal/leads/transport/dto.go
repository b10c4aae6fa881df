package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest creates a lead. owner_id defaults to the caller.
type CreateLeadRequest struct {
	FirstName  *string    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string    `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email      *string    `json:"email" validate:"omitempty,email,max=254"`
	Phone      *string    `json:"phone" validate:"omitempty,min=5,max=32"`
	Company    *string    `json:"company" validate:"omitempty,min=1,max=200"`
	Title      *string    `json:"title" validate:"omitempty,max=200"`
	Source     *string    `json:"source" validate:"omitempty,max=100"`
	StageID    *uuid.UUID `json:"stage_id"`
	Status     *string    `json:"status" validate:"omitempty,min=1,max=50"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
	OwnerID    *uuid.UUID `json:"owner_id"`
}

// UpdateLeadRequest is a partial update. Absent fields are left alone.
// A changed stage_id is executed as a stage transition.
type UpdateLeadRequest struct {
	FirstName  *string        `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string        `json:"last_name" validate:"omitempty,max=100"`
	Email      *string        `json:"email" validate:"omitempty,email,max=254"`
	Phone      *string        `json:"phone" validate:"omitempty,min=5,max=32"`
	Company    *string        `json:"company" validate:"omitempty,max=200"`
	Title      *string        `json:"title" validate:"omitempty,max=200"`
	Source     *string        `json:"source" validate:"omitempty,max=100"`
	StageID    OptionalUUID   `json:"stage_id"`
	Status     OptionalString `json:"status"`
	AssignedTo OptionalUUID   `json:"assigned_to"`
	OwnerID    OptionalUUID   `json:"owner_id"`
}

// TransitionRequest moves a lead to another stage.
type TransitionRequest struct {
	ToStageID uuid.UUID `json:"to_stage_id" validate:"required"`
	Notes     *string   `json:"notes" validate:"omitempty,max=2000"`
}

// ListLeadsRequest is bound from the query string.
type ListLeadsRequest struct {
	AssignedTo string `form:"assigned_to" validate:"omitempty,uuid"`
	StageID    string `form:"stage_id" validate:"omitempty,uuid"`
	Status     string `form:"status" validate:"omitempty,max=50"`
	Limit      int    `form:"limit" validate:"omitempty,min=1"`
	PageState  string `form:"pageState"`
	Q          string `form:"q" validate:"omitempty,max=100"`
}

type LeadResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	Email          *string    `json:"email"`
	Phone          *string    `json:"phone"`
	Company        *string    `json:"company"`
	Title          *string    `json:"title"`
	Source         *string    `json:"source"`
	StageID        *uuid.UUID `json:"stage_id"`
	Status         *string    `json:"status"`
	AssignedTo     *uuid.UUID `json:"assigned_to"`
	OwnerID        *uuid.UUID `json:"owner_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type LeadListResponse struct {
	Items     []LeadResponse `json:"items"`
	PageState *string        `json:"pageState"`
}

type JourneyEntryResponse struct {
	TransitionID string     `json:"transition_id"`
	LeadID       uuid.UUID  `json:"lead_id"`
	FromStageID  *uuid.UUID `json:"from_stage_id"`
	ToStageID    uuid.UUID  `json:"to_stage_id"`
	ChangedBy    uuid.UUID  `json:"changed_by"`
	Notes        *string    `json:"notes"`
	ChangedAt    time.Time  `json:"changed_at"`
}

type JourneyResponse struct {
	Items []JourneyEntryResponse `json:"items"`
}
