package receipt

import (
	"context"
	"fmt"
	"strings"
)

const textWidth = 40

// TextRenderer produces a plain-text receipt.
type TextRenderer struct{}

// NewText constructs a text renderer.
func NewText() *TextRenderer {
	return &TextRenderer{}
}

// Render formats the receipt as fixed-width text.
func (TextRenderer) Render(ctx context.Context, v View) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	heavy := strings.Repeat("=", textWidth)
	light := strings.Repeat("-", textWidth)

	var b strings.Builder
	b.WriteString(heavy + "\n")
	b.WriteString("               RECEIPT\n")
	b.WriteString(heavy + "\n")
	fmt.Fprintf(&b, "Order: %s\n", v.OrderID)
	fmt.Fprintf(&b, "Date:  %s\n", v.PlacedAt.Format("2006-01-02"))
	b.WriteString(light + "\n")
	for _, l := range v.Lines {
		fmt.Fprintf(&b, "%d x %s @ $%s = $%s\n", l.Quantity, l.Name, l.UnitPrice, l.LineTotal)
	}
	b.WriteString(light + "\n")
	fmt.Fprintf(&b, "TOTAL: %*s\n", textWidth-len("TOTAL: "), "$"+v.Total)
	b.WriteString(heavy + "\n")
	b.WriteString("     Thank you for your purchase!\n")

	return &Document{
		Filename:    fmt.Sprintf("receipt-%s.txt", v.OrderID),
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(b.String()),
	}, nil
}
