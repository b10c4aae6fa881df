package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ListAuditRequest struct {
	From       string `form:"from"`
	To         string `form:"to"`
	EntityType string `form:"entity_type" validate:"omitempty,max=64"`
	Limit      int    `form:"limit" validate:"omitempty,min=1"`
	PageState  string `form:"pageState"`
}

type EntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	UserID         *uuid.UUID      `json:"user_id"`
	EntityType     string          `json:"entity_type"`
	EntityID       *string         `json:"entity_id"`
	Action         string          `json:"action"`
	Details        json.RawMessage `json:"details,omitempty"`
	IP             *string         `json:"ip"`
	UserAgent      *string         `json:"user_agent"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ListAuditResponse struct {
	Items     []EntryResponse `json:"items"`
	PageState *string         `json:"pageState"`
}
