package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// Form messages.
const (
	MsgProductMissing = "selected product does not exist"
	MsgTotalMismatch  = "total amount does not match current price"
	MsgQuantity       = "quantity must be a positive whole number"
	MsgTimestamp      = "sale time must look like YYYY-MM-DD HH:MM"
	MsgTotalFormat    = "total amount must be a number"
	MsgTotalTooLarge  = "total amount is too large"
)

// ImportLayout is the timestamp layout used by CSV rows.
const ImportLayout = "2006-01-02 15:04"

var formLayouts = []string{"2006-01-02T15:04", ImportLayout, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// ValidateSaleInput checks a manual sale submission against the current
// catalogue. The returned error is non-nil only for lookup failures; rule
// violations come back as FieldErrors.
func ValidateSaleInput(ctx context.Context, lookup ProductLookup, in Input, loc *time.Location) (Valid, shared.FieldErrors, error) {
	in.ProductName = shared.Clean(in.ProductName, 0)
	in.Quantity = strings.TrimSpace(in.Quantity)
	in.SoldAt = strings.TrimSpace(in.SoldAt)
	in.Total = strings.TrimSpace(in.Total)

	errs := shared.ValidateStruct(in)

	qty, ok := parseQuantity(in.Quantity)
	if !ok {
		delete(errs, "quantity")
		errs.Add("quantity", MsgQuantity)
	}

	soldAt, ok := parseFormTime(in.SoldAt, loc)
	if !ok {
		delete(errs, "sale_timestamp")
		errs.Add("sale_timestamp", MsgTimestamp)
	}

	var (
		supplied    decimal.Decimal
		hasSupplied bool
	)
	if in.Total != "" {
		d, err := decimal.NewFromString(in.Total)
		switch {
		case err != nil:
			errs.Add("total_amount", MsgTotalFormat)
		case !shared.AmountFits(d):
			errs.Add("total_amount", MsgTotalTooLarge)
		default:
			supplied, hasSupplied = d, true
		}
	}

	if in.ProductName == "" {
		return Valid{}, errs, nil
	}
	product, err := lookup.FindByName(ctx, in.ProductName)
	if errors.Is(err, shared.ErrNotFound) {
		errs.Add("product_name", MsgProductMissing)
		return Valid{}, errs, nil
	}
	if err != nil {
		return Valid{}, nil, err
	}
	if errs.Any() {
		return Valid{}, errs, nil
	}

	expected := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	if !shared.AmountFits(expected) {
		errs.Add("total_amount", MsgTotalTooLarge)
		return Valid{}, errs, nil
	}
	if hasSupplied && !supplied.Equal(expected) {
		errs.Add("total_amount", MsgTotalMismatch)
		return Valid{}, errs, nil
	}
	return Valid{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    qty,
		Total:       expected,
		SoldAt:      soldAt,
	}, nil, nil
}

// parseQuantity accepts a positive whole number that fits an INTEGER column.
func parseQuantity(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 || n > shared.MaxQuantity {
		return 0, false
	}
	return int(n), true
}

func parseFormTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range formLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
