// Package products manages the fruit catalogue: listing, adding (with
// reactivation of a soft-deleted name), editing and soft deletion.
package products

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// ErrDuplicateName is returned when a write would collide with another product's name.
var ErrDuplicateName = errors.New("products: name already in use")

// Product is a fruit sold by the shop.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Status    shared.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input is the raw add/edit form submission.
type Input struct {
	Name  string `form:"name" validate:"required,max=100"`
	Price string `form:"price" validate:"required"`
}

// Valid is a product submission that passed validation.
type Valid struct {
	Name  string
	Price decimal.Decimal
}

// CreateResult reports whether AddProduct created a row or revived one.
type CreateResult struct {
	Product     Product
	Reactivated bool
}
