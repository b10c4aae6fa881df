package management

import (
	"context"

	"leadpipe_backend/internal/leads/repository"
)

// Reporting rows are best-effort like index rows: failures are logged and
// the primary mutation stands.

func (s *Service) addReportRows(ctx context.Context, lead repository.Lead) {
	log := s.log.WithContext(ctx)
	if lead.OwnerID != nil {
		if err := s.reporter.AddToOwner(ctx, lead.OrganizationID, *lead.OwnerID, lead.ID, lead.CreatedAt); err != nil {
			log.IndexWriteFailed("report_owner", "insert", lead.ID.String(), err)
		}
	}
	if lead.StageID != nil {
		if err := s.reporter.AddToStage(ctx, lead.OrganizationID, *lead.StageID, lead.ID, lead.CreatedAt); err != nil {
			log.IndexWriteFailed("report_stage", "insert", lead.ID.String(), err)
		}
	}
}

func (s *Service) removeReportRows(ctx context.Context, lead repository.Lead) {
	log := s.log.WithContext(ctx)
	if lead.OwnerID != nil {
		if err := s.reporter.RemoveFromOwner(ctx, lead.OrganizationID, *lead.OwnerID, lead.ID, lead.CreatedAt); err != nil {
			log.IndexWriteFailed("report_owner", "delete", lead.ID.String(), err)
		}
	}
	if lead.StageID != nil {
		if err := s.reporter.RemoveFromStage(ctx, lead.OrganizationID, *lead.StageID, lead.ID, lead.CreatedAt); err != nil {
			log.IndexWriteFailed("report_stage", "delete", lead.ID.String(), err)
		}
	}
}

// moveOwnerRow deletes the old owner's row and inserts the new one,
// independently.
func (s *Service) moveOwnerRow(ctx context.Context, before, after repository.Lead) {
	if sameUUID(before.OwnerID, after.OwnerID) {
		return
	}
	log := s.log.WithContext(ctx)
	if before.OwnerID != nil {
		if err := s.reporter.RemoveFromOwner(ctx, before.OrganizationID, *before.OwnerID, before.ID, before.CreatedAt); err != nil {
			log.IndexWriteFailed("report_owner", "delete", before.ID.String(), err)
		}
	}
	if after.OwnerID != nil {
		if err := s.reporter.AddToOwner(ctx, after.OrganizationID, *after.OwnerID, after.ID, before.CreatedAt); err != nil {
			log.IndexWriteFailed("report_owner", "insert", after.ID.String(), err)
		}
	}
}
