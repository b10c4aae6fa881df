package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("custom field definition not found")

// Definition describes one custom field of an entity type.
type Definition struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     string
	Name           string
	Type           string
	IsRequired     bool
	Options        []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpdateParams carries a partial definition update. Nil means unchanged.
type UpdateParams struct {
	Name       *string
	Type       *string
	IsRequired *bool
	Options    *[]string
	UpdatedAt  time.Time
}

// Store is the custom fields persistence contract.
type Store interface {
	CreateDefinition(ctx context.Context, d Definition) error
	GetDefinition(ctx context.Context, organizationID, id uuid.UUID) (Definition, error)
	ListDefinitions(ctx context.Context, organizationID uuid.UUID, entityType string) ([]Definition, error)
	UpdateDefinition(ctx context.Context, organizationID, id uuid.UUID, params UpdateParams) (Definition, error)
	DeleteDefinition(ctx context.Context, organizationID, id uuid.UUID) error
	UpsertValue(ctx context.Context, organizationID, entityID, definitionID uuid.UUID, value json.RawMessage, updatedAt time.Time) error
	ListValues(ctx context.Context, organizationID, entityID uuid.UUID) (map[uuid.UUID]json.RawMessage, error)
}

const definitionColumns = `id, organization_id, entity_type, name, type, is_required, options, created_at, updated_at`

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Store = (*Repo)(nil)

func (r *Repo) CreateDefinition(ctx context.Context, d Definition) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO custom_field_definitions (`+definitionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.OrganizationID, d.EntityType, d.Name, d.Type, d.IsRequired, d.Options, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create custom field definition: %w", err)
	}
	return nil
}

func (r *Repo) GetDefinition(ctx context.Context, organizationID, id uuid.UUID) (Definition, error) {
	d, err := scanDefinition(r.pool.QueryRow(ctx, `
		SELECT `+definitionColumns+`
		FROM custom_field_definitions
		WHERE organization_id = $1 AND id = $2`, organizationID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("get custom field definition: %w", err)
	}
	return d, nil
}

func (r *Repo) ListDefinitions(ctx context.Context, organizationID uuid.UUID, entityType string) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+definitionColumns+`
		FROM custom_field_definitions
		WHERE organization_id = $1 AND entity_type = $2
		ORDER BY created_at ASC, id ASC`, organizationID, entityType)
	if err != nil {
		return nil, fmt.Errorf("list custom field definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]Definition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custom field definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (r *Repo) UpdateDefinition(ctx context.Context, organizationID, id uuid.UUID, params UpdateParams) (Definition, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Type != nil {
		add("type", *params.Type)
	}
	if params.IsRequired != nil {
		add("is_required", *params.IsRequired)
	}
	if params.Options != nil {
		add("options", *params.Options)
	}
	add("updated_at", params.UpdatedAt)

	args = append(args, organizationID, id)
	query := fmt.Sprintf(`
		UPDATE custom_field_definitions SET %s
		WHERE organization_id = $%d AND id = $%d
		RETURNING `+definitionColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1)

	d, err := scanDefinition(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("update custom field definition: %w", err)
	}
	return d, nil
}

func (r *Repo) DeleteDefinition(ctx context.Context, organizationID, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `
		DELETE FROM custom_field_definitions WHERE organization_id = $1 AND id = $2`, organizationID, id); err != nil {
		return fmt.Errorf("delete custom field definition: %w", err)
	}
	return nil
}

// UpsertValue writes one value row. Each row is written on its own.
func (r *Repo) UpsertValue(ctx context.Context, organizationID, entityID, definitionID uuid.UUID, value json.RawMessage, updatedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO custom_field_values (organization_id, entity_id, definition_id, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, entity_id, definition_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		organizationID, entityID, definitionID, []byte(value), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert custom field value: %w", err)
	}
	return nil
}

func (r *Repo) ListValues(ctx context.Context, organizationID, entityID uuid.UUID) (map[uuid.UUID]json.RawMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT definition_id, value
		FROM custom_field_values
		WHERE organization_id = $1 AND entity_id = $2`, organizationID, entityID)
	if err != nil {
		return nil, fmt.Errorf("list custom field values: %w", err)
	}
	defer rows.Close()

	values := make(map[uuid.UUID]json.RawMessage)
	for rows.Next() {
		var id uuid.UUID
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan custom field value: %w", err)
		}
		if raw == nil {
			raw = []byte("null")
		}
		values[id] = json.RawMessage(raw)
	}
	return values, rows.Err()
}

func scanDefinition(row pgx.Row) (Definition, error) {
	var d Definition
	err := row.Scan(&d.ID, &d.OrganizationID, &d.EntityType, &d.Name, &d.Type, &d.IsRequired, &d.Options, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}
