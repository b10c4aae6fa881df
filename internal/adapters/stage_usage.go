// Package adapters bridges modules that must not import each other.
package adapters

import (
	"context"

	"github.com/google/uuid"
)

// LeadStageIndex answers whether any lead of an organization sits in a stage.
type LeadStageIndex interface {
	ExistsInStage(ctx context.Context, organizationID, stageID uuid.UUID) (bool, error)
}

// StageUsage lets the stages module ask the leads primary table whether a
// stage is still referenced before deleting it.
type StageUsage struct {
	leads LeadStageIndex
}

func NewStageUsage(leads LeadStageIndex) *StageUsage {
	return &StageUsage{leads: leads}
}

func (a *StageUsage) StageInUse(ctx context.Context, organizationID, stageID uuid.UUID) (bool, error) {
	return a.leads.ExistsInStage(ctx, organizationID, stageID)
}
