package receipt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	rowHeight  = 8.0
	amountCol  = 40.0
)

// PDFRenderer lays out an A4 receipt.
type PDFRenderer struct {
	storeName string
	now       func() time.Time
}

// PDFOption configures a PDFRenderer.
type PDFOption func(*PDFRenderer)

// WithStoreName sets the heading printed above the order number.
func WithStoreName(name string) PDFOption {
	return func(r *PDFRenderer) {
		r.storeName = name
	}
}

// WithClock overrides the clock used to stamp filenames.
func WithClock(now func() time.Time) PDFOption {
	return func(r *PDFRenderer) {
		r.now = now
	}
}

// NewPDF constructs a PDF renderer.
func NewPDF(opts ...PDFOption) *PDFRenderer {
	r := &PDFRenderer{storeName: "OnPromotion", now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws the receipt. Layout errors are reported by fpdf at Output.
func (r *PDFRenderer) Render(ctx context.Context, v View) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Receipt #"+v.OrderID, true)
	pdf.SetCreationDate(v.PlacedAt)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	width, _ := pdf.GetPageSize()
	content := width - 2*pageMargin

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(195, 85, 85)
	pdf.CellFormat(content, 10, tr(r.storeName+" - Receipt #"+v.OrderID), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(content, rowHeight, "Date: "+v.PlacedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(content, rowHeight, "Product details", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, l := range v.Lines {
		label := fmt.Sprintf("%s (x%d)", l.Name, l.Quantity)
		pdf.CellFormat(content-amountCol, rowHeight, tr(label), "B", 0, "L", false, 0, "")
		pdf.CellFormat(amountCol, rowHeight, "$"+l.LineTotal, "B", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(content-amountCol, 10, "TOTAL:", "T", 0, "L", false, 0, "")
	pdf.CellFormat(amountCol, 10, "$"+v.Total, "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return &Document{
		Filename:    fmt.Sprintf("receipt-%s-%d.pdf", v.OrderID, r.now().UnixMilli()),
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
	}, nil
}
