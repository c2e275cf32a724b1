package models

import (
	"encoding/json"
	"strings"

	"storefront/internal/money"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

// Validate parses the product ID.
func (r AddItemRequest) Validate() (id.ProductID, error) {
	return id.ParseProductID(strings.TrimSpace(r.ProductID))
}

// SetQuantityRequest is the body of PUT /cart/items/{productID}. Quantity may
// arrive as a JSON number or as the raw text of a form field.
type SetQuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// RawQuantity returns the quantity as text for money.NormalizeQuantity.
func (r SetQuantityRequest) RawQuantity() (string, error) {
	raw := strings.TrimSpace(string(r.Quantity))
	if raw == "" || raw == "null" {
		return "", dErrors.New(dErrors.CodeInvalidQuantity, "quantity is required")
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(r.Quantity, &s); err != nil {
			return "", dErrors.New(dErrors.CodeInvalidQuantity, "quantity must be a positive whole number")
		}
		return s, nil
	}
	return raw, nil
}

// LineResponse is one cart line as shown to shoppers.
type LineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// CartResponse is the body of every cart endpoint.
type CartResponse struct {
	CartID    string         `json:"cart_id"`
	Items     []LineResponse `json:"items"`
	ItemCount int            `json:"item_count"`
	Total     string         `json:"total"`
}

// NewCartResponse formats a snapshot for display.
func NewCartResponse(cartID id.CartID, snap Snapshot) CartResponse {
	items := make([]LineResponse, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, LineResponse{
			ProductID: l.ProductID.String(),
			Name:      l.Name,
			UnitPrice: money.Format(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money.Format(l.Total()),
		})
	}
	return CartResponse{
		CartID:    cartID.String(),
		Items:     items,
		ItemCount: snap.ItemCount(),
		Total:     money.Format(snap.Total()),
	}
}
