package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/platform/db"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Repository reads report inputs from PostgreSQL.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// SalesBetween returns active sales sold in [from, to].
func (r *Repository) SalesBetween(ctx context.Context, from, to time.Time) ([]SaleRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT p.name, s.quantity, s.total_amount, s.sold_at, s.is_active
FROM sales s
JOIN products p ON p.id = s.product_id
WHERE s.is_active AND s.sold_at BETWEEN $1 AND $2
ORDER BY s.sold_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics: sales between: %w", err)
	}
	defer rows.Close()

	var out []SaleRecord
	for rows.Next() {
		var (
			rec    SaleRecord
			active bool
		)
		if err := rows.Scan(&rec.ProductName, &rec.Quantity, &rec.Amount, &rec.SoldAt, &active); err != nil {
			return nil, fmt.Errorf("analytics: scan sale: %w", err)
		}
		rec.Status = shared.FromActive(active)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GrandTotal sums total_amount over every active sale.
func (r *Repository) GrandTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE is_active`).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("analytics: grand total: %w", err)
	}
	return total, nil
}
