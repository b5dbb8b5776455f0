package postgres

import (
	"context"

	"farmapos/internal/core/id"
	"farmapos/internal/domain/events"
	"farmapos/internal/domain/sale"
	"farmapos/pkg/logger"
)

// ChangeLogger is the audit write surface consumed by the completion
// subscriber. Satisfied by AuditService.
type ChangeLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes any) error
}

// NewSaleAuditSubscriber returns a completion handler that snapshots the
// finished sale, header plus every line, into the audit log. Large carts
// cross the compression threshold and are stored zstd-compressed.
func NewSaleAuditSubscriber(sales sale.Repository, audit ChangeLogger) events.SaleCompletedHandler {
	return func(ctx context.Context, ev events.SaleCompleted) {
		s, err := sales.GetByID(ctx, ev.SaleID)
		if err != nil {
			logger.Error(ctx, "audit snapshot: load sale failed", "sale_id", ev.SaleID, "error", err)
			return
		}
		lines, err := sales.GetLines(ctx, ev.SaleID)
		if err != nil {
			logger.Error(ctx, "audit snapshot: load lines failed", "sale_id", ev.SaleID, "error", err)
			return
		}
		s.Lines = lines

		if err := audit.LogChange(ctx, "sale", ev.SaleID, AuditActionComplete, s); err != nil {
			logger.Error(ctx, "audit snapshot: write failed", "sale_id", ev.SaleID, "error", err)
		}
	}
}
