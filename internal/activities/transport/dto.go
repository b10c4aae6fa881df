package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateActivityRequest struct {
	Type        string          `json:"type" validate:"required,oneof=call email note meeting task"`
	Description string          `json:"description" validate:"required,min=1,max=5000"`
	Details     json.RawMessage `json:"details"`
}

type ListActivitiesRequest struct {
	Limit     int    `form:"limit" validate:"omitempty,min=1"`
	PageState string `form:"pageState"`
}

type ActivityResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	LeadID         uuid.UUID       `json:"lead_id"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
	Details        json.RawMessage `json:"details,omitempty"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ActivityListResponse struct {
	Items     []ActivityResponse `json:"items"`
	PageState *string            `json:"pageState"`
}
