package sale

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/events"
	"farmapos/pkg/logger"
)

// CommissionGenerator writes commission records for a completed sale.
// Runs after commit: a failure is logged but never aborts the sale.
type CommissionGenerator interface {
	GenerateForSale(ctx context.Context, s *Sale) error
}

// PointsSettler applies loyalty earn/redeem and the per-redemption side
// effects (history rows, redeemable stock) inside the finalize transaction.
type PointsSettler interface {
	Settle(ctx context.Context, s *Sale) (earned, redeemed int64, err error)
}

// Notifier is the fire-and-forget notification sink consumed at completion.
type Notifier interface {
	NotifyLowStock(ctx context.Context, productID id.ID, name string, stock, minStock types.Quantity)
	NotifyLargeSale(ctx context.Context, saleID id.ID, amount types.Money)
}

// Publisher announces completed sales to in-process listeners.
type Publisher interface {
	PublishSaleCompleted(ctx context.Context, ev events.SaleCompleted)
}

// lowStockHit is collected inside the transaction, notified after commit.
type lowStockHit struct {
	productID id.ID
	name      string
	stock     types.Quantity
	minStock  types.Quantity
}

// Finalize completes the draft: final totals and Completed status, loyalty
// settlement and product sale counters commit atomically; commission
// generation, notifications and the completion event follow after commit and
// are best-effort by design (the money has already changed hands).
func (e *Engine) Finalize(ctx context.Context, method PaymentMethod, amountTendered types.Money) (*Sale, Totals, error) {
	var (
		s         *Sale
		totals    Totals
		lowStocks []lowStockHit
	)

	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		s, err = e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}
		if len(s.Lines) == 0 {
			return apperror.NewValidation("cannot complete an empty sale")
		}

		s.PaymentMethod = method
		totals = ComputeSaleTotals(s, amountTendered)
		if method == PayCash && amountTendered.IsPositive() && totals.Change.IsNegative() {
			return apperror.NewValidation("amount tendered is below the amount due").
				WithDetail("amount_due", totals.AmountDue.StringFixed(2))
		}

		now := time.Now().UTC()
		s.Status = StatusCompleted
		s.Subtotal = totals.Subtotal
		s.Tax = totals.Tax
		s.AmountDue = totals.AmountDue
		s.CompletedAt = &now
		s.Touch()
		if err := e.sales.Update(ctx, s); err != nil {
			return err
		}

		if s.ClientID != nil && e.points != nil {
			earned, redeemed, err := e.points.Settle(ctx, s)
			if err != nil {
				return err
			}
			logger.Info(ctx, "loyalty settled",
				"sale_id", s.ID, "earned", earned, "redeemed", redeemed)
		}

		for i := range s.Lines {
			l := &s.Lines[i]
			if l.Kind != KindNormal {
				continue
			}
			sold := types.Quantity(l.Quantity) * l.Factor
			if err := e.products.AddUnitsSold(ctx, l.ProductID, sold); err != nil {
				return err
			}
			p, err := e.products.GetByID(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if p.IsLowStock() {
				lowStocks = append(lowStocks, lowStockHit{
					productID: p.ID,
					name:      p.Name,
					stock:     p.Stock,
					minStock:  p.MinStock,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, Totals{}, err
	}

	// Post-commit side effects. None of these may fail the completed sale.
	if e.commissions != nil {
		if err := e.commissions.GenerateForSale(ctx, s); err != nil {
			logger.Error(ctx, "commission generation failed", "sale_id", s.ID, "error", err)
		}
	}
	if e.notifier != nil {
		for _, hit := range lowStocks {
			e.notifier.NotifyLowStock(ctx, hit.productID, hit.name, hit.stock, hit.minStock)
		}
		if e.opts.LargeSaleThreshold.IsPositive() && totals.AmountDue.GreaterThan(e.opts.LargeSaleThreshold) {
			e.notifier.NotifyLargeSale(ctx, s.ID, totals.AmountDue)
		}
	}
	if e.bus != nil {
		e.bus.PublishSaleCompleted(ctx, events.SaleCompleted{
			SaleID:      s.ID,
			UserID:      s.UserID,
			AmountDue:   totals.AmountDue,
			CompletedAt: *s.CompletedAt,
		})
	}

	logger.Info(ctx, "sale completed",
		"sale_id", s.ID,
		"amount_due", totals.AmountDue.StringFixed(2),
		"payment_method", string(method),
	)
	return s, totals, nil
}
