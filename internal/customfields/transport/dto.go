package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateDefinitionRequest struct {
	EntityType string   `json:"entity_type" validate:"required,oneof=lead"`
	Name       string   `json:"name" validate:"required,min=1,max=100"`
	Type       string   `json:"type" validate:"required,oneof=text number date dropdown checkbox"`
	IsRequired bool     `json:"is_required"`
	Options    []string `json:"options" validate:"omitempty,dive,min=1,max=100"`
}

type UpdateDefinitionRequest struct {
	Name       *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Type       *string   `json:"type" validate:"omitempty,oneof=text number date dropdown checkbox"`
	IsRequired *bool     `json:"is_required"`
	Options    *[]string `json:"options" validate:"omitempty,dive,min=1,max=100"`
}

type ListDefinitionsRequest struct {
	EntityType string `form:"entity_type" validate:"omitempty,oneof=lead"`
}

type DefinitionResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	EntityType     string    `json:"entity_type"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	IsRequired     bool      `json:"is_required"`
	Options        []string  `json:"options"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type DefinitionListResponse struct {
	Items []DefinitionResponse `json:"items"`
}

// ValuesRequest maps definition ids to raw JSON values.
type ValuesRequest map[string]json.RawMessage

type ValuesResponse struct {
	Values map[string]json.RawMessage `json:"values"`
}
