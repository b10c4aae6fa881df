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

const table = "audit_logs"

// Entry is one row of the audit trail.
type Entry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	UserID         *uuid.UUID
	EntityType     string
	EntityID       string
	Action         string
	Details        json.RawMessage
	IP             string
	UserAgent      string
	CreatedAt      time.Time
}

// Filter narrows a listing. Zero values mean unbounded.
type Filter struct {
	From       time.Time
	To         time.Time
	EntityType string
	Limit      int
	PageState  string
}

type Page struct {
	Items []Entry
	Next  string
}

type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, organizationID uuid.UUID, f Filter) (Page, error)
}

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Store = (*Repo)(nil)

func (r *Repo) Insert(ctx context.Context, e Entry) error {
	var details interface{}
	if len(e.Details) > 0 {
		details = e.Details
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (organization_id, created_at, id, user_id, entity_type, entity_id, action, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''), NULLIF($10, ''))`,
		e.OrganizationID, e.CreatedAt, e.ID, e.UserID, e.EntityType, e.EntityID, e.Action, details, e.IP, e.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List pages the organization's trail newest first. The page state is bound
// to the entity type filter so it cannot be replayed against another one.
func (r *Repo) List(ctx context.Context, organizationID uuid.UUID, f Filter) (Page, error) {
	partition := pagestate.Partition(organizationID, f.EntityType)
	pos, hasPos, err := pagestate.Decode(f.PageState, table, partition)
	if err != nil {
		return Page{}, err
	}

	query := `
		SELECT id, organization_id, user_id, entity_type, COALESCE(entity_id, ''), action, details,
		       COALESCE(ip, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs
		WHERE organization_id = $1
		  AND ($2::boolean = false OR created_at >= $3)
		  AND ($4::boolean = false OR created_at <= $5)
		  AND ($6::text = '' OR entity_type = $6)
		  AND ($7::boolean = false OR (created_at, id) < ($8, $9))
		ORDER BY created_at DESC, id DESC
		LIMIT $10`

	rows, err := r.pool.Query(ctx, query,
		organizationID,
		!f.From.IsZero(), f.From,
		!f.To.IsZero(), f.To,
		f.EntityType,
		hasPos, pos.CreatedAt, pos.ID,
		f.Limit+1,
	)
	if err != nil {
		return Page{}, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	items := make([]Entry, 0, f.Limit)
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.EntityType, &e.EntityID, &e.Action, &details, &e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return Page{}, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate audit entries: %w", err)
	}

	return BuildPage(items, f.Limit, partition), nil
}

// BuildPage trims a limit+1 fetch and emits a page state only when more
// rows exist.
func BuildPage(items []Entry, limit int, partition string) Page {
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
