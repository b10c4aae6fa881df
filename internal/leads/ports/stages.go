package ports

import (
	"context"

	"github.com/google/uuid"
)

// StageReader checks pipeline stages owned by the stages domain.
type StageReader interface {
	// StageExists reports whether the stage exists in the organization.
	StageExists(ctx context.Context, organizationID, stageID uuid.UUID) (bool, error)
}
