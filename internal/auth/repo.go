package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/myfruitshop/myfruitshop/internal/platform/db"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{db: q}
}

const userSelect = `SELECT id, email, name, password_hash, is_active, last_login_at, created_at, updated_at FROM users`

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, userSelect+` WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.db.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
}

// TouchLogin records a successful sign-in.
func (r *PGRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("auth: touch login: %w", err)
	}
	return nil
}

// UpsertUser creates the account or resets its name, hash and active flag.
// Used by the seed tool.
func (r *PGRepository) UpsertUser(ctx context.Context, email, name, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, is_active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (LOWER(email)) DO UPDATE
SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, is_active = TRUE, updated_at = NOW()
RETURNING id`, email, name, passwordHash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("auth: upsert user: %w", err)
	}
	return id, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: scan user: %w", err)
	}
	return u, nil
}

var _ Repository = (*PGRepository)(nil)
