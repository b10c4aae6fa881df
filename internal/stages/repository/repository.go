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

const stageColumns = `id, organization_id, name, description, is_final, "order", created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new stages repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, s Stage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO stages (`+stageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.OrganizationID, s.Name, s.Description, s.IsFinal, s.Order, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stage: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, organizationID, id uuid.UUID) (Stage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+stageColumns+`
		FROM stages
		WHERE organization_id = $1 AND id = $2`, organizationID, id)

	s, err := scanStage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stage{}, ErrNotFound
	}
	if err != nil {
		return Stage{}, fmt.Errorf("get stage: %w", err)
	}
	return s, nil
}

// List returns the organization's stages ordered by order, then created_at.
func (r *Repo) List(ctx context.Context, organizationID uuid.UUID) ([]Stage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+stageColumns+`
		FROM stages
		WHERE organization_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]Stage, 0)
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

func (r *Repo) Exists(ctx context.Context, organizationID, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM stages WHERE organization_id = $1 AND id = $2)`,
		organizationID, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stage exists: %w", err)
	}
	return exists, nil
}

func (r *Repo) Update(ctx context.Context, organizationID, id uuid.UUID, params UpdateParams) (Stage, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if params.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *params.Name)
		argIdx++
	}
	if params.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *params.Description)
		argIdx++
	}
	if params.IsFinal != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_final = $%d", argIdx))
		args = append(args, *params.IsFinal)
		argIdx++
	}
	if params.Order != nil {
		setClauses = append(setClauses, fmt.Sprintf(`"order" = $%d`, argIdx))
		args = append(args, *params.Order)
		argIdx++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, params.UpdatedAt)
	argIdx++

	args = append(args, organizationID, id)
	query := fmt.Sprintf(`
		UPDATE stages SET %s
		WHERE organization_id = $%d AND id = $%d
		RETURNING `+stageColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1)

	s, err := scanStage(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Stage{}, ErrNotFound
	}
	if err != nil {
		return Stage{}, fmt.Errorf("update stage: %w", err)
	}
	return s, nil
}

func (r *Repo) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM stages WHERE organization_id = $1 AND id = $2`, organizationID, id); err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	return nil
}

func scanStage(row pgx.Row) (Stage, error) {
	var s Stage
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Description, &s.IsFinal, &s.Order, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
