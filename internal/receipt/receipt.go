// Package receipt renders placed orders into downloadable documents.
//
// Renderers are pure: given the same View they produce the same bytes apart
// from the generation timestamp in the filename, and they never touch orders,
// carts or the network.
package receipt

import (
	"context"
	"strings"
	"time"

	"storefront/internal/money"
	orderModels "storefront/internal/order/models"
	dErrors "storefront/pkg/domain-errors"
)

// Supported formats.
const (
	FormatPDF  = "pdf"
	FormatText = "text"
)

// View is the presentation form of an order. Money is formatted here, once.
type View struct {
	OrderID  string
	PlacedAt time.Time
	Lines    []ViewLine
	Total    string
}

// ViewLine is one row of the receipt.
type ViewLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

// FromOrder builds the view for a persisted order.
func FromOrder(o *orderModels.Order) View {
	lines := make([]ViewLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, ViewLine{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money.Format(l.UnitPrice),
			LineTotal: money.Format(l.Total()),
		})
	}
	return View{
		OrderID:  o.ID.String(),
		PlacedAt: o.CreatedAt,
		Lines:    lines,
		Total:    money.Format(o.Total),
	}
}

// Document is a rendered receipt ready to be served.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Renderer turns a view into a document.
type Renderer interface {
	Render(ctx context.Context, v View) (*Document, error)
}

// Registry selects a renderer by format name.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry returns a registry holding the PDF and text renderers.
func NewRegistry(pdf, text Renderer) *Registry {
	return &Registry{renderers: map[string]Renderer{
		FormatPDF:  pdf,
		FormatText: text,
	}}
}

// Lookup returns the renderer for format. An empty format selects PDF.
func (r *Registry) Lookup(format string) (Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatPDF
	}
	renderer, ok := r.renderers[format]
	if !ok || renderer == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported receipt format")
	}
	return renderer, nil
}
