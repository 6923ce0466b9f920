package shared

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity an INTEGER column holds.
const MaxQuantity = math.MaxInt32

// MaxAmount is the largest price or total the schema can hold.
var MaxAmount = decimal.New(999999999999, -2)

// AmountFits reports whether d fits a NUMERIC(12,2) column.
func AmountFits(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}
