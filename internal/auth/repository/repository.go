package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	PasswordHash   string
	FirstName      *string
	LastName       *string
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserStore persists users. Email uniqueness per organization is enforced
// by reserving the (organization, email) row before the user row is written.
type UserStore interface {
	ReserveEmail(ctx context.Context, organizationID uuid.UUID, email string, userID uuid.UUID) (bool, error)
	ReleaseEmail(ctx context.Context, organizationID uuid.UUID, email string) error
	CreateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, organizationID uuid.UUID, email string) (User, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ UserStore = (*Repository)(nil)

func (r *Repository) ReserveEmail(ctx context.Context, organizationID uuid.UUID, email string, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO users_by_email (organization_id, email, id)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, email) DO NOTHING`,
		organizationID, email, userID,
	)
	if err != nil {
		return false, fmt.Errorf("reserve email: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ReleaseEmail(ctx context.Context, organizationID uuid.UUID, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users_by_email WHERE organization_id = $1 AND email = $2`, organizationID, email)
	if err != nil {
		return fmt.Errorf("release email: %w", err)
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, user User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (organization_id, id, email, password_hash, first_name, last_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.OrganizationID, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail resolves the id through users_by_email, then loads the row.
func (r *Repository) GetUserByEmail(ctx context.Context, organizationID uuid.UUID, email string) (User, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM users_by_email WHERE organization_id = $1 AND email = $2`,
		organizationID, email,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup email: %w", err)
	}

	var u User
	err = r.pool.QueryRow(ctx, `
		SELECT id, organization_id, email, password_hash, first_name, last_name, role, created_at, updated_at
		FROM users WHERE organization_id = $1 AND id = $2`,
		organizationID, id,
	).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
