// Package models defines placed orders.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/money"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

// Line is a frozen copy of a cart line at the time the order was placed.
type Line struct {
	ProductID id.ProductID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Price implements money.Priced.
func (l Line) Price() decimal.Decimal { return l.UnitPrice }

// Count implements money.Priced.
func (l Line) Count() int { return l.Quantity }

// Total is UnitPrice × Quantity.
func (l Line) Total() decimal.Decimal { return money.LineTotal(l.UnitPrice, l.Quantity) }

// Order is written once and never modified.
//
// Invariants:
//   - ID is nil until the order store assigns one
//   - OwnerID is set and Lines is non-empty
//   - Total equals the sum of the line totals
type Order struct {
	ID        id.OrderID
	OwnerID   id.UserID
	Lines     []Line
	Total     decimal.Decimal
	CreatedAt time.Time
}

// NewOrder builds an unsaved order from a deep copy of lines.
func NewOrder(owner id.UserID, lines []Line) (*Order, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "order owner is required")
	}
	if len(lines) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "order must have at least one line")
	}
	for _, l := range lines {
		if l.Quantity < 1 || l.UnitPrice.IsNegative() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "order line is invalid")
		}
	}
	copied := make([]Line, len(lines))
	copy(copied, lines)
	return &Order{
		OwnerID: owner,
		Lines:   copied,
		Total:   money.CartTotal(copied),
	}, nil
}

// Clone returns a copy that shares no line storage with o.
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = make([]Line, len(o.Lines))
	copy(c.Lines, o.Lines)
	return &c
}

// ItemCount is the sum of line quantities.
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
