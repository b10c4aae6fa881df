package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func validTable(table IndexTable) error {
	switch table {
	case IndexByAssigned, IndexByStage, IndexByStatus:
		return nil
	default:
		return fmt.Errorf("unknown index table %q", table)
	}
}

func (r *Repository) InsertIndexRow(ctx context.Context, key IndexKey) error {
	if err := validTable(key.Table); err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (organization_id, value, created_at, id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, key.Table)
	_, err := r.pool.Exec(ctx, query, key.OrganizationID, key.Value, key.CreatedAt, key.LeadID)
	return err
}

func (r *Repository) DeleteIndexRow(ctx context.Context, key IndexKey) error {
	if err := validTable(key.Table); err != nil {
		return err
	}
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE organization_id = $1 AND value = $2 AND created_at = $3 AND id = $4
	`, key.Table)
	_, err := r.pool.Exec(ctx, query, key.OrganizationID, key.Value, key.CreatedAt, key.LeadID)
	return err
}

// ListIndexIDs pages one index partition newest first.
func (r *Repository) ListIndexIDs(ctx context.Context, table IndexTable, organizationID uuid.UUID, value string, page PageRequest) (IDPage, error) {
	if err := validTable(table); err != nil {
		return IDPage{}, err
	}
	partition := partitionKey(organizationID, value)
	pos, hasPos, err := decodePageState(page.State, string(table), partition)
	if err != nil {
		return IDPage{}, err
	}

	var rows pgx.Rows
	if hasPos {
		rows, err = r.pool.Query(ctx, fmt.Sprintf(`
			SELECT created_at, id FROM %s
			WHERE organization_id = $1 AND value = $2 AND (created_at, id) < ($3, $4)
			ORDER BY created_at DESC, id DESC
			LIMIT $5
		`, table), organizationID, value, pos.createdAt, pos.id, page.Limit+1)
	} else {
		rows, err = r.pool.Query(ctx, fmt.Sprintf(`
			SELECT created_at, id FROM %s
			WHERE organization_id = $1 AND value = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`, table), organizationID, value, page.Limit+1)
	}
	if err != nil {
		return IDPage{}, err
	}
	defer rows.Close()

	positions := make([]position, 0, page.Limit+1)
	for rows.Next() {
		var p position
		if err := rows.Scan(&p.createdAt, &p.id); err != nil {
			return IDPage{}, err
		}
		positions = append(positions, p)
	}
	if rows.Err() != nil {
		return IDPage{}, rows.Err()
	}

	return buildPage(positions, page.Limit, string(table), partition), nil
}
