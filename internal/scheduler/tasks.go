package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"leadpipe_backend/internal/events"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskAuditRecord = "audit.record"

const TaskLeadReindex = "leads.reindex"

type AuditRecordPayload struct {
	OrganizationID string          `json:"organizationId"`
	ActorID        string          `json:"actorId,omitempty"`
	Action         string          `json:"action"`
	EntityType     string          `json:"entityType"`
	EntityID       string          `json:"entityId,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	IP             string          `json:"ip,omitempty"`
	UserAgent      string          `json:"userAgent,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

type LeadReindexPayload struct {
	OrganizationID string `json:"organizationId"`
	LeadID         string `json:"leadId"`
}

func NewAuditRecordTask(payload AuditRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data), nil
}

func ParseAuditRecordPayload(task *asynq.Task) (AuditRecordPayload, error) {
	var payload AuditRecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AuditRecordPayload{}, err
	}
	return payload, nil
}

func NewLeadReindexTask(payload LeadReindexPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadReindex, data), nil
}

func ParseLeadReindexPayload(task *asynq.Task) (LeadReindexPayload, error) {
	var payload LeadReindexPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadReindexPayload{}, err
	}
	return payload, nil
}

func auditPayloadFrom(action events.ActionPerformed) AuditRecordPayload {
	payload := AuditRecordPayload{
		OrganizationID: action.OrganizationID.String(),
		Action:         action.Action,
		EntityType:     action.EntityType,
		EntityID:       action.EntityID,
		Metadata:       action.Metadata,
		IP:             action.IP,
		UserAgent:      action.UserAgent,
		OccurredAt:     action.OccurredAt(),
	}
	if action.ActorID != uuid.Nil {
		payload.ActorID = action.ActorID.String()
	}
	return payload
}

func (p AuditRecordPayload) action() (events.ActionPerformed, error) {
	orgID, err := uuid.Parse(p.OrganizationID)
	if err != nil {
		return events.ActionPerformed{}, fmt.Errorf("organization id: %w", err)
	}

	action := events.ActionPerformed{
		BaseEvent:      events.BaseEventAt(p.OccurredAt),
		OrganizationID: orgID,
		Action:         p.Action,
		EntityType:     p.EntityType,
		EntityID:       p.EntityID,
		Metadata:       p.Metadata,
		IP:             p.IP,
		UserAgent:      p.UserAgent,
	}
	if p.ActorID != "" {
		actorID, err := uuid.Parse(p.ActorID)
		if err != nil {
			return events.ActionPerformed{}, fmt.Errorf("actor id: %w", err)
		}
		action.ActorID = actorID
	}
	return action, nil
}
