// Package receipt renders completed sales into printable payloads.
// Device handling lives outside this service.
package receipt

import (
	"context"

	"farmapos/internal/domain/sale"
)

// Renderer turns a completed sale into a printable receipt.
type Renderer interface {
	// Render produces the receipt payload for a completed sale.
	Render(ctx context.Context, s *sale.Sale, totals sale.Totals) ([]byte, error)
}

// Noop discards receipts. Used when no printer is configured.
type Noop struct{}

func (Noop) Render(ctx context.Context, s *sale.Sale, totals sale.Totals) ([]byte, error) {
	return nil, nil
}

var _ Renderer = Noop{}
