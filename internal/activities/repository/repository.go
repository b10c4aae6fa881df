package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadpipe_backend/platform/pagestate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const table = "activities"

// Activity is one logged interaction with a lead.
type Activity struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	Type           string
	Description    string
	Details        json.RawMessage
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
}

// Page is one page of a lead's activities, newest first.
type Page struct {
	Items []Activity
	Next  string
}

// Store is the activities persistence contract.
type Store interface {
	Insert(ctx context.Context, a Activity) error
	List(ctx context.Context, organizationID, leadID uuid.UUID, limit int, state string) (Page, error)
}

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Store = (*Repo)(nil)

func (r *Repo) Insert(ctx context.Context, a Activity) error {
	var details interface{}
	if len(a.Details) > 0 {
		details = a.Details
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (organization_id, lead_id, created_at, id, type, description, details, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.OrganizationID, a.LeadID, a.CreatedAt, a.ID, a.Type, a.Description, details, a.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// List pages the lead partition by (created_at DESC, id DESC).
func (r *Repo) List(ctx context.Context, organizationID, leadID uuid.UUID, limit int, state string) (Page, error) {
	partition := pagestate.Partition(organizationID, leadID.String())
	pos, hasPos, err := pagestate.Decode(state, table, partition)
	if err != nil {
		return Page{}, err
	}

	query := `
		SELECT id, organization_id, lead_id, type, description, details, created_by, created_at
		FROM activities
		WHERE organization_id = $1 AND lead_id = $2
		  AND ($3::boolean = false OR (created_at, id) < ($4, $5))
		ORDER BY created_at DESC, id DESC
		LIMIT $6`

	rows, err := r.pool.Query(ctx, query, organizationID, leadID, hasPos, pos.CreatedAt, pos.ID, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		var details []byte
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.LeadID, &a.Type, &a.Description, &details, &a.CreatedBy, &a.CreatedAt); err != nil {
			return Page{}, fmt.Errorf("scan activity: %w", err)
		}
		if len(details) > 0 {
			a.Details = json.RawMessage(details)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate activities: %w", err)
	}

	return BuildPage(items, limit, partition), nil
}

// BuildPage trims a limit+1 fetch and emits a page state only when more
// rows exist.
func BuildPage(items []Activity, limit int, partition string) Page {
	if len(items) <= limit {
		return Page{Items: items}
	}
	items = items[:limit]
	last := items[len(items)-1]
	return Page{
		Items: items,
		Next:  pagestate.Encode(table, partition, pagestate.Position{CreatedAt: last.CreatedAt, ID: last.ID}),
	}
}
