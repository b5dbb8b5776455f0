package receipt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"farmapos/internal/domain/sale"
)

const lineWidth = 42

// TextRenderer produces a plain-text receipt sized for thermal printers.
type TextRenderer struct {
	// Header lines printed before the sale body (store name, address).
	Header []string
	// Footer lines printed after the totals.
	Footer []string
}

var _ Renderer = (*TextRenderer)(nil)

// NewTextRenderer creates a renderer with the given header and footer.
func NewTextRenderer(header, footer []string) *TextRenderer {
	return &TextRenderer{Header: header, Footer: footer}
}

// Render formats the sale as a fixed-width text block.
func (r *TextRenderer) Render(ctx context.Context, s *sale.Sale, totals sale.Totals) ([]byte, error) {
	var buf bytes.Buffer

	for _, h := range r.Header {
		center(&buf, h)
	}
	rule(&buf)

	fmt.Fprintf(&buf, "Sale: %s\n", s.ID)
	if s.CompletedAt != nil {
		fmt.Fprintf(&buf, "Date: %s\n", s.CompletedAt.Format("2006-01-02 15:04"))
	}
	if s.ClientName != "" {
		fmt.Fprintf(&buf, "Client: %s\n", s.ClientName)
	}
	rule(&buf)

	for i := range s.Lines {
		l := &s.Lines[i]
		switch l.Kind {
		case sale.KindRedeemed:
			row(&buf, fmt.Sprintf("%s (points)", l.ProductName), fmt.Sprintf("%d pts", l.PointsCost))
		default:
			name := l.ProductName
			if l.Unit != "" {
				name = fmt.Sprintf("%s [%s]", name, l.Unit)
			}
			buf.WriteString(name)
			buf.WriteByte('\n')
			row(&buf, fmt.Sprintf("  %d x %s", l.Quantity, l.UnitPrice.StringFixed(2)), l.Subtotal.StringFixed(2))
		}
	}
	rule(&buf)

	row(&buf, "Subtotal", totals.Subtotal.StringFixed(2))
	if totals.Discount.IsPositive() {
		row(&buf, "Discount", "-"+totals.Discount.StringFixed(2))
	}
	row(&buf, "VAT (incl.)", totals.Tax.StringFixed(2))
	if !totals.Rounding.IsZero() {
		row(&buf, "Rounding", totals.Rounding.StringFixed(2))
	}
	row(&buf, "TOTAL", totals.AmountDue.StringFixed(2))
	row(&buf, "Paid by", string(s.PaymentMethod))
	if totals.Change.IsPositive() {
		row(&buf, "Change", totals.Change.StringFixed(2))
	}

	if s.Note != "" {
		rule(&buf)
		buf.WriteString(s.Note)
		buf.WriteByte('\n')
	}

	if len(r.Footer) > 0 {
		rule(&buf)
		for _, f := range r.Footer {
			center(&buf, f)
		}
	}

	return buf.Bytes(), nil
}

func rule(buf *bytes.Buffer) {
	buf.WriteString(strings.Repeat("-", lineWidth))
	buf.WriteByte('\n')
}

// row prints a left and right column padded to the line width.
func row(buf *bytes.Buffer, left, right string) {
	pad := lineWidth - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	buf.WriteString(left)
	buf.WriteString(strings.Repeat(" ", pad))
	buf.WriteString(right)
	buf.WriteByte('\n')
}

func center(buf *bytes.Buffer, s string) {
	if pad := (lineWidth - len(s)) / 2; pad > 0 {
		buf.WriteString(strings.Repeat(" ", pad))
	}
	buf.WriteString(s)
	buf.WriteByte('\n')
}
