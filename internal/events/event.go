// Package events defines the domain events modules publish to each other.
// The bus itself lives in platform/events.
package events

import (
	"encoding/json"

	"leadpipe_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent = events.NewBaseEvent
	BaseEventAt  = events.BaseEventAt
)

// =============================================================================
// Audit Events
// =============================================================================

// ActionPerformed is published after a mutating request succeeded.
// Subscribers persist it to the audit trail; the request never waits on them.
type ActionPerformed struct {
	BaseEvent
	OrganizationID uuid.UUID       `json:"organizationId"`
	ActorID        uuid.UUID       `json:"actorId"`
	Action         string          `json:"action"`
	EntityType     string          `json:"entityType"`
	EntityID       string          `json:"entityId,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	IP             string          `json:"ip,omitempty"`
	UserAgent      string          `json:"userAgent,omitempty"`
}

func (e ActionPerformed) EventName() string { return "audit.action.performed" }

// =============================================================================
// Auth Events
// =============================================================================

// UserRegistered is published when a new user account is created.
type UserRegistered struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	UserID         uuid.UUID `json:"userId"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
}

func (e UserRegistered) EventName() string { return "auth.user.registered" }
