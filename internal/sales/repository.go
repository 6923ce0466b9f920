package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/myfruitshop/myfruitshop/internal/platform/db"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

const saleSelect = `SELECT s.id, s.product_id, p.name, s.quantity, s.total_amount, s.sold_at, s.is_active, s.created_at, s.updated_at
FROM sales s
JOIN products p ON p.id = s.product_id`

// Repository persists sales in PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a Repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// ListActive returns one page of active sales, newest sale time first.
func (r *Repository) ListActive(ctx context.Context, limit, offset int) ([]Sale, error) {
	rows, err := r.db.Query(ctx, saleSelect+`
WHERE s.is_active
ORDER BY s.sold_at DESC, s.id DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sales: list: %w", err)
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountActive returns the number of active sales.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sales: count: %w", err)
	}
	return n, nil
}

// Get loads a sale of any status.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	return scanOne(r.db.QueryRow(ctx, saleSelect+` WHERE s.id = $1`, id))
}

// Create inserts an active sale.
func (r *Repository) Create(ctx context.Context, v Valid, now time.Time) (Sale, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO sales (product_id, quantity, total_amount, sold_at, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, $5, $5)
RETURNING id`, v.ProductID, v.Quantity, v.Total, v.SoldAt, now).Scan(&id)
	if err != nil {
		return Sale{}, fmt.Errorf("sales: insert: %w", err)
	}
	return Sale{
		ID:          id,
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		Quantity:    v.Quantity,
		Total:       v.Total,
		SoldAt:      v.SoldAt,
		Status:      shared.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update rewrites product, quantity, total and sale time.
func (r *Repository) Update(ctx context.Context, id int64, v Valid, now time.Time) (Sale, error) {
	tag, err := r.db.Exec(ctx, `UPDATE sales
SET product_id = $2, quantity = $3, total_amount = $4, sold_at = $5, updated_at = $6
WHERE id = $1`, id, v.ProductID, v.Quantity, v.Total, v.SoldAt, now)
	if err != nil {
		return Sale{}, fmt.Errorf("sales: update %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return Sale{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// SoftDelete flips the sale to Deleted; repeating it is a no-op.
func (r *Repository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE sales
SET is_active = FALSE,
    updated_at = CASE WHEN is_active THEN $2 ELSE updated_at END
WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("sales: soft delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanOne(row pgx.Row) (Sale, error) {
	s, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	return s, err
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s      Sale
		active bool
	)
	if err := row.Scan(&s.ID, &s.ProductID, &s.ProductName, &s.Quantity, &s.Total, &s.SoldAt, &active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Sale{}, err
	}
	s.Status = shared.FromActive(active)
	return s, nil
}
