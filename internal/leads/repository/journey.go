package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func (r *Repository) AppendJourney(ctx context.Context, entry JourneyEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_journey (
			organization_id, lead_id, transition_id, from_stage_id, to_stage_id, changed_by, notes, changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.OrganizationID, entry.LeadID, entry.TransitionID, entry.FromStageID, entry.ToStageID,
		entry.ChangedBy, entry.Notes, entry.ChangedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateTransition
	}
	return err
}

func (r *Repository) ListJourney(ctx context.Context, organizationID, leadID uuid.UUID, limit int) ([]JourneyEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT organization_id, lead_id, transition_id, from_stage_id, to_stage_id, changed_by, notes, changed_at
		FROM lead_journey
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY changed_at DESC, transition_id DESC
		LIMIT $3
	`, organizationID, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]JourneyEntry, 0)
	for rows.Next() {
		var e JourneyEntry
		if err := rows.Scan(&e.OrganizationID, &e.LeadID, &e.TransitionID, &e.FromStageID, &e.ToStageID,
			&e.ChangedBy, &e.Notes, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}
