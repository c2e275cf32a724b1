// Package money holds the decimal arithmetic shared by carts, orders and
// receipts.
//
// Amounts are shopspring decimals end to end. Nothing is rounded while
// accumulating; Format is the only place a value is cut to two places, and it
// is only called when presenting.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	dErrors "storefront/pkg/domain-errors"
)

// DisplayPlaces is the number of decimal places shown to shoppers.
const DisplayPlaces = 2

// Priced is anything with a unit price and a quantity.
type Priced interface {
	Price() decimal.Decimal
	Count() int
}

// LineTotal is unitPrice × quantity, unrounded.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartTotal sums LineTotal over lines. An empty slice totals zero.
func CartTotal[T Priced](lines []T) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l.Price(), l.Count()))
	}
	return total
}

// Format renders d with two decimal places (half away from zero).
func Format(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}

// NormalizeQuantity parses user-supplied quantity text. Integral values,
// including "2.0", are accepted; anything non-numeric, fractional or below 1
// fails with CodeInvalidQuantity.
func NormalizeQuantity(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" || len(s) > maxQuantityInput {
		return 0, invalidQuantity()
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 0, invalidQuantity()
		}
		return n, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0, invalidQuantity()
	}
	// IsInteger and IntPart expand the value to its full scale, so the
	// exponent is bounded first.
	exp := int64(d.Exponent())
	if exp < -maxQuantityInput || int64(len(d.Coefficient().String()))+exp > maxQuantityDigits {
		return 0, invalidQuantity()
	}
	if !d.IsInteger() {
		return 0, invalidQuantity()
	}
	n := d.IntPart()
	if n > int64(maxInt) {
		return 0, invalidQuantity()
	}
	return int(n), nil
}

const (
	maxInt = int(^uint(0) >> 1)

	// maxQuantityInput bounds the raw text and, with it, the coefficient.
	maxQuantityInput = 32
	// maxQuantityDigits keeps every accepted value inside int64.
	maxQuantityDigits = 18
)

func invalidQuantity() error {
	return dErrors.New(dErrors.CodeInvalidQuantity, "quantity must be a positive whole number")
}

// ParsePrice parses an admin-entered price. Negative and non-numeric input
// fails with CodeValidation.
func ParsePrice(input string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "price must be a valid number")
	}
	if d.IsNegative() {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "price cannot be negative")
	}
	return d, nil
}
