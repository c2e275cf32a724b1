// Package models defines cart lines, snapshots and the persisted cart layout.
package models

import (
	"github.com/shopspring/decimal"

	"storefront/internal/money"
	id "storefront/pkg/domain"
)

// Line is one product in a cart.
//
// Invariants:
//   - Quantity >= 1; a line that would reach 0 is removed instead
//   - UnitPrice >= 0 and is fixed when the line is first added, so the cart
//     is a priced snapshot rather than a live view of the catalog
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
func (l Line) Total() decimal.Decimal {
	return money.LineTotal(l.UnitPrice, l.Quantity)
}

// Product is the catalog data a cart needs when adding an item.
type Product struct {
	ID    id.ProductID
	Name  string
	Price decimal.Decimal
}

// Snapshot is an immutable copy of a cart taken at a point in time.
type Snapshot struct {
	Lines []Line
}

// Total sums the snapshot lines.
func (s Snapshot) Total() decimal.Decimal {
	return money.CartTotal(s.Lines)
}

// IsEmpty reports whether the snapshot has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// ItemCount is the sum of quantities.
func (s Snapshot) ItemCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// Clone deep-copies lines so callers cannot alias cart state.
func Clone(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
