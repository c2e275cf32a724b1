package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	id "storefront/pkg/domain"
)

// persistedCart is the on-disk layout:
//
//	{"items":[{"productId":"…","name":"…","unitPrice":10.5,"quantity":2}]}
type persistedCart struct {
	Items []persistedLine `json:"items"`
}

type persistedLine struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	UnitPrice json.Number `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
}

// ErrMalformed marks persisted data that fails decoding or validation.
var ErrMalformed = errors.New("malformed cart data")

// Encode serializes lines to the persisted layout.
func Encode(lines []Line) ([]byte, error) {
	pc := persistedCart{Items: make([]persistedLine, 0, len(lines))}
	for _, l := range lines {
		pc.Items = append(pc.Items, persistedLine{
			ProductID: l.ProductID.String(),
			Name:      l.Name,
			UnitPrice: json.Number(l.UnitPrice.String()),
			Quantity:  l.Quantity,
		})
	}
	return json.Marshal(pc)
}

// Decode parses and validates persisted data. Any violation of the line
// invariants rejects the whole payload with ErrMalformed; partial carts are
// never returned.
func Decode(data []byte) ([]Line, error) {
	var pc persistedCart
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	lines := make([]Line, 0, len(pc.Items))
	seen := make(map[id.ProductID]struct{}, len(pc.Items))
	for i, item := range pc.Items {
		pid, err := id.ParseProductID(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: bad product id", ErrMalformed, i)
		}
		if _, dup := seen[pid]; dup {
			return nil, fmt.Errorf("%w: item %d: duplicate product", ErrMalformed, i)
		}
		seen[pid] = struct{}{}

		price, err := decimal.NewFromString(item.UnitPrice.String())
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d: bad unit price", ErrMalformed, i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d: bad quantity", ErrMalformed, i)
		}
		lines = append(lines, Line{
			ProductID: pid,
			Name:      item.Name,
			UnitPrice: price,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}
