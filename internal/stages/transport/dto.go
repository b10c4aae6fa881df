package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateStageRequest struct {
	Name        string  `json:"name" yaml:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description" yaml:"description" validate:"omitempty,max=500"`
	IsFinal     bool    `json:"is_final" yaml:"is_final"`
	Order       *int    `json:"order" yaml:"order" validate:"omitempty,min=0"`
}

type UpdateStageRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsFinal     *bool   `json:"is_final"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

type StageResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	IsFinal        bool      `json:"is_final"`
	Order          int       `json:"order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type StageListResponse struct {
	Items []StageResponse `json:"items"`
}
