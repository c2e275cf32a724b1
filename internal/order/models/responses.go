package models

import (
	"time"

	"storefront/internal/money"
)

// LineResponse is an order line as shown on the account page.
type LineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// OrderResponse summarizes a past order.
type OrderResponse struct {
	ID        string         `json:"id"`
	Total     string         `json:"total"`
	ItemCount int            `json:"item_count"`
	CreatedAt time.Time      `json:"created_at"`
	Lines     []LineResponse `json:"lines"`
}

// HistoryResponse lists a user's orders, newest first.
type HistoryResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// ToResponse formats o for clients.
func (o *Order) ToResponse() OrderResponse {
	lines := make([]LineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, LineResponse{
			ProductID: l.ProductID.String(),
			Name:      l.Name,
			UnitPrice: money.Format(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money.Format(l.Total()),
		})
	}
	return OrderResponse{
		ID:        o.ID.String(),
		Total:     money.Format(o.Total),
		ItemCount: o.ItemCount(),
		CreatedAt: o.CreatedAt,
		Lines:     lines,
	}
}
