package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/myfruitshop/myfruitshop/internal/shared"
)

// MsgPriceNotPositive is shown when the price is missing, malformed or <= 0.
const MsgPriceNotPositive = "price must be positive"

// MsgPriceTooLarge is shown when the price does not fit the price column.
const MsgPriceTooLarge = "price is too large"

// ValidateProductInput checks a product submission. It never touches the store.
func ValidateProductInput(in Input) (Valid, shared.FieldErrors) {
	in.Name = shared.Clean(in.Name, 0)
	in.Price = strings.TrimSpace(in.Price)

	errs := shared.ValidateStruct(in)
	// Anything wrong with the price reads the same to the user.
	if errs.Has("price") {
		delete(errs, "price")
	}

	price, err := decimal.NewFromString(in.Price)
	if err != nil || !price.IsPositive() {
		errs.Add("price", MsgPriceNotPositive)
	} else if !price.Round(2).Equal(price) {
		errs.Add("price", "price can have at most two decimal places")
	} else if !shared.AmountFits(price) {
		errs.Add("price", MsgPriceTooLarge)
	}
	if errs.Any() {
		return Valid{}, errs
	}
	return Valid{Name: in.Name, Price: price}, nil
}
