package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSaleInputComputesTotal(t *testing.T) {
	lookup := newLookup(product(1, "Apple", "10"))

	v, errs, err := ValidateSaleInput(context.Background(), lookup, Input{
		ProductName: " Apple ",
		Quantity:    "3",
		SoldAt:      "2024-01-10T10:00",
	}, time.UTC)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, int64(1), v.ProductID)
	assert.Equal(t, 3, v.Quantity)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC), v.SoldAt)
}

func TestValidateSaleInputUnknownProduct(t *testing.T) {
	_, errs, err := ValidateSaleInput(context.Background(), newLookup(), Input{
		ProductName: "Ghost",
		Quantity:    "1",
		SoldAt:      "2024-01-10 10:00",
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, MsgProductMissing, errs["product_name"])
}

func TestValidateSaleInputTotalMustMatch(t *testing.T) {
	lookup := newLookup(product(1, "Apple", "10"))
	in := Input{ProductName: "Apple", Quantity: "3", SoldAt: "2024-01-10 10:00", Total: "31"}

	_, errs, err := ValidateSaleInput(context.Background(), lookup, in, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, MsgTotalMismatch, errs["total_amount"])

	in.Total = "30.00"
	_, errs, err = ValidateSaleInput(context.Background(), lookup, in, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateSaleInputFieldErrors(t *testing.T) {
	lookup := newLookup(product(1, "Apple", "10"))

	_, errs, err := ValidateSaleInput(context.Background(), lookup, Input{
		ProductName: "Apple",
		Quantity:    "0",
		SoldAt:      "yesterday",
		Total:       "abc",
	}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, MsgQuantity, errs["quantity"])
	assert.Equal(t, MsgTimestamp, errs["sale_timestamp"])
	assert.Equal(t, MsgTotalFormat, errs["total_amount"])
}

func TestValidateSaleInputRequiresProduct(t *testing.T) {
	lookup := newLookup()
	_, errs, err := ValidateSaleInput(context.Background(), lookup, Input{Quantity: "1", SoldAt: "2024-01-10 10:00"}, time.UTC)
	require.NoError(t, err)
	assert.True(t, errs.Has("product_name"))
	assert.Zero(t, lookup.calls)
}

func TestValidateSaleInputLookupFailure(t *testing.T) {
	lookup := newLookup()
	lookup.err = errors.New("db down")

	_, errs, err := ValidateSaleInput(context.Background(), lookup, Input{ProductName: "Apple", Quantity: "1", SoldAt: "2024-01-10 10:00"}, time.UTC)
	require.Error(t, err)
	assert.Nil(t, errs)
}

func TestValidateSaleInputUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	lookup := newLookup(product(1, "Apple", "10"))

	v, errs, err := ValidateSaleInput(context.Background(), lookup, Input{ProductName: "Apple", Quantity: "1", SoldAt: "2024-01-10T09:00"}, tokyo)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), v.SoldAt.UTC())
}

func TestValidateSaleInputColumnLimits(t *testing.T) {
	lookup := newLookup(product(1, "Apple", "10"))
	ctx := context.Background()

	_, errs, err := ValidateSaleInput(ctx, lookup, Input{ProductName: "Apple", Quantity: "3000000000", SoldAt: "2024-01-10 10:00"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, MsgQuantity, errs["quantity"])

	_, errs, err = ValidateSaleInput(ctx, lookup, Input{ProductName: "Apple", Quantity: "1", SoldAt: "2024-01-10 10:00", Total: "10000000000"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, MsgTotalTooLarge, errs["total_amount"])

	// 2147483647 x 10 overflows NUMERIC(12,2) even though the quantity fits.
	_, errs, err = ValidateSaleInput(ctx, lookup, Input{ProductName: "Apple", Quantity: "2147483647", SoldAt: "2024-01-10 10:00"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, MsgTotalTooLarge, errs["total_amount"])

	v, errs, err := ValidateSaleInput(ctx, lookup, Input{ProductName: "Apple", Quantity: "999999999", SoldAt: "2024-01-10 10:00"}, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "9999999990", v.Total.String())
}
