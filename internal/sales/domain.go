// Package sales records sale transactions: manual add and edit, soft delete,
// paginated listing and CSV bulk import.
package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/products"
	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Sale is one recorded transaction. Total is fixed when recorded and does not
// follow later price changes.
type Sale struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int
	Total       decimal.Decimal
	SoldAt      time.Time
	Status      shared.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input is the raw add/edit form submission. Total is optional; when present
// it must agree with the current price.
type Input struct {
	ProductName string `form:"product_name" validate:"required,max=100"`
	Quantity    string `form:"quantity" validate:"required"`
	SoldAt      string `form:"sale_timestamp" validate:"required"`
	Total       string `form:"total_amount"`
}

// Valid is a sale ready to be stored.
type Valid struct {
	ProductID   int64
	ProductName string
	Quantity    int
	Total       decimal.Decimal
	SoldAt      time.Time
}

// ProductLookup resolves products by name, in any status.
type ProductLookup interface {
	FindByName(ctx context.Context, name string) (products.Product, error)
}
