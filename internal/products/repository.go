package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/platform/db"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

const productColumns = `id, name, price, is_active, created_at, updated_at`

// Repository persists products in PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a Repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// ListActive returns active products, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("products: list: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get loads a product of any status.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanOne(row)
}

// FindByName loads a product of any status by exact name.
func (r *Repository) FindByName(ctx context.Context, name string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
	return scanOne(row)
}

// Insert stores a new active product.
func (r *Repository) Insert(ctx context.Context, v Valid, now time.Time) (Product, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO products (name, price, is_active, created_at, updated_at)
VALUES ($1, $2, TRUE, $3, $3)
RETURNING `+productColumns, v.Name, v.Price, now)
	p, err := scanOne(row)
	if db.IsUniqueViolation(err) {
		return Product{}, ErrDuplicateName
	}
	return p, err
}

// Reactivate marks the product active with a new price and resets created_at
// so it lists as freshly added.
func (r *Repository) Reactivate(ctx context.Context, id int64, price decimal.Decimal, now time.Time) (Product, error) {
	row := r.db.QueryRow(ctx, `UPDATE products
SET is_active = TRUE, price = $2, created_at = $3, updated_at = $3
WHERE id = $1
RETURNING `+productColumns, id, price, now)
	return scanOne(row)
}

// Update changes name and price, keeping the status.
func (r *Repository) Update(ctx context.Context, id int64, v Valid, now time.Time) (Product, error) {
	row := r.db.QueryRow(ctx, `UPDATE products
SET name = $2, price = $3, updated_at = $4
WHERE id = $1
RETURNING `+productColumns, id, v.Name, v.Price, now)
	p, err := scanOne(row)
	if db.IsUniqueViolation(err) {
		return Product{}, ErrDuplicateName
	}
	return p, err
}

// SoftDelete flips the product to Deleted. Deleting an already deleted
// product succeeds without touching updated_at.
func (r *Repository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE products
SET is_active = FALSE,
    updated_at = CASE WHEN is_active THEN $2 ELSE updated_at END
WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("products: soft delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanOne(row pgx.Row) (Product, error) {
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p      Product
		active bool
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	p.Status = shared.FromActive(active)
	return p, nil
}
