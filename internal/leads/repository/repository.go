package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed store. Every method issues independent
// statements on the shared pool; nothing here opens a transaction.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, organization_id, first_name, last_name, email, phone, company, title, source,
	stage_id, status, assigned_to, owner_id, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Company, &lead.Title, &lead.Source,
		&lead.StageID, &lead.Status, &lead.AssignedTo, &lead.OwnerID,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Create(ctx context.Context, lead Lead) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		lead.ID, lead.OrganizationID, lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		lead.Company, lead.Title, lead.Source,
		lead.StageID, lead.Status, lead.AssignedTo, lead.OwnerID,
		lead.CreatedAt, lead.UpdatedAt,
	)
	return err
}

func (r *Repository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND id = $2
	`, organizationID, id)
	return scanLead(row)
}

func (r *Repository) Update(ctx context.Context, organizationID, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.FirstName != nil, "first_name", nullIfEmpty(params.FirstName)},
		{params.LastName != nil, "last_name", nullIfEmpty(params.LastName)},
		{params.Email != nil, "email", nullIfEmpty(params.Email)},
		{params.Phone != nil, "phone", nullIfEmpty(params.Phone)},
		{params.Company != nil, "company", nullIfEmpty(params.Company)},
		{params.Title != nil, "title", nullIfEmpty(params.Title)},
		{params.Source != nil, "source", nullIfEmpty(params.Source)},
		{params.StatusSet, "status", nullIfEmpty(params.Status)},
		{params.AssignedToSet, "assigned_to", params.AssignedTo},
		{params.OwnerIDSet, "owner_id", params.OwnerID},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, organizationID, id)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, params.UpdatedAt, organizationID, id)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE organization_id = $%d AND id = $%d
		RETURNING `+leadColumns,
		strings.Join(setClauses, ", "), argIdx+1, argIdx+2)

	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

func (r *Repository) UpdateStage(ctx context.Context, organizationID, id, stageID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET stage_id = $3, updated_at = now()
		WHERE organization_id = $1 AND id = $2
		RETURNING `+leadColumns,
		organizationID, id, stageID)
	return scanLead(row)
}

func (r *Repository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE organization_id = $1 AND id = $2`, organizationID, id)
	return err
}

// ListIDs pages the primary table in id order.
func (r *Repository) ListIDs(ctx context.Context, organizationID uuid.UUID, page PageRequest) (IDPage, error) {
	partition := partitionKey(organizationID, "")
	pos, hasPos, err := decodePageState(page.State, primaryTable, partition)
	if err != nil {
		return IDPage{}, err
	}

	var rows pgx.Rows
	if hasPos {
		rows, err = r.pool.Query(ctx, `
			SELECT id FROM leads
			WHERE organization_id = $1 AND id > $2
			ORDER BY id
			LIMIT $3
		`, organizationID, pos.id, page.Limit+1)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id FROM leads
			WHERE organization_id = $1
			ORDER BY id
			LIMIT $2
		`, organizationID, page.Limit+1)
	}
	if err != nil {
		return IDPage{}, err
	}
	defer rows.Close()

	positions := make([]position, 0, page.Limit+1)
	for rows.Next() {
		var p position
		if err := rows.Scan(&p.id); err != nil {
			return IDPage{}, err
		}
		positions = append(positions, p)
	}
	if rows.Err() != nil {
		return IDPage{}, rows.Err()
	}

	return buildPage(positions, page.Limit, primaryTable, partition), nil
}

func (r *Repository) ExistsInStage(ctx context.Context, organizationID, stageID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM leads WHERE organization_id = $1 AND stage_id = $2)
	`, organizationID, stageID).Scan(&exists)
	return exists, err
}

// buildPage trims the look-ahead row and emits a page state only when more
// rows exist.
func buildPage(positions []position, limit int, table, partition string) IDPage {
	out := IDPage{IDs: make([]uuid.UUID, 0, limit)}
	hasMore := len(positions) > limit
	if hasMore {
		positions = positions[:limit]
	}
	for _, p := range positions {
		out.IDs = append(out.IDs, p.id)
	}
	if hasMore && len(positions) > 0 {
		out.Next = encodePageState(table, partition, positions[len(positions)-1])
	}
	return out
}

func nullIfEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
