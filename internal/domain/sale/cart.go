package sale

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	appctx "farmapos/internal/core/context"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/tx"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/product"
	"farmapos/pkg/logger"
)

// Options tunes cart engine behavior.
type Options struct {
	// AutoTierPromotion converts a base-unit line to one tier unit when the
	// typed quantity equals a tier's conversion factor exactly (package >
	// box > blister priority). Carried from the reference behavior.
	AutoTierPromotion bool

	// LargeSaleThreshold triggers a notification when amount due exceeds it.
	LargeSaleThreshold types.Money
}

// DefaultOptions matches the reference behavior.
func DefaultOptions() Options {
	return Options{
		AutoTierPromotion:  true,
		LargeSaleThreshold: types.NewMoney(500),
	}
}

// RedeemedItem is a resolved redeemable-catalog entry handed to RedeemPoints.
type RedeemedItem struct {
	ID         id.ID
	Name       string
	PointsCost int64
}

// Engine owns every cart mutation. Each operation runs in one database
// transaction: the conditional stock reserve and the line write commit or
// roll back together, so stock and persisted lines never drift apart.
type Engine struct {
	sales    Repository
	products product.Repository
	clients  client.Repository
	txm      tx.Manager
	opts     Options

	// finalization collaborators, see finalize.go
	commissions CommissionGenerator
	points      PointsSettler
	notifier    Notifier
	bus         Publisher
}

// NewEngine creates a cart engine. Commission, loyalty, notification and
// event collaborators are optional and attached with the With* methods.
func NewEngine(sales Repository, products product.Repository, clients client.Repository, txm tx.Manager, opts Options) *Engine {
	return &Engine{
		sales:    sales,
		products: products,
		clients:  clients,
		txm:      txm,
		opts:     opts,
	}
}

// WithCommissions attaches the commission generator.
func (e *Engine) WithCommissions(g CommissionGenerator) *Engine {
	e.commissions = g
	return e
}

// WithPoints attaches the loyalty settler.
func (e *Engine) WithPoints(p PointsSettler) *Engine {
	e.points = p
	return e
}

// WithNotifier attaches the notification sink.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// WithBus attaches the sale-completed publisher.
func (e *Engine) WithBus(b Publisher) *Engine {
	e.bus = b
	return e
}

// currentUserID resolves the operator from context.
func currentUserID(ctx context.Context) (id.ID, error) {
	raw := appctx.GetUserID(ctx)
	if raw == "" {
		return id.Nil(), apperror.NewUnauthorized("no authenticated user")
	}
	userID, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewUnauthorized("invalid user id").WithCause(err)
	}
	return userID, nil
}

// FindOrCreatePending returns the operator's Pending sale, creating an empty
// one if none exists. No side effect when one is already present.
func (e *Engine) FindOrCreatePending(ctx context.Context) (*Sale, error) {
	t, err := tenant.Require(ctx)
	if err != nil {
		return nil, apperror.NewNoTenant()
	}
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	s, err := e.sales.GetPendingByUser(ctx, userID)
	if err == nil {
		return e.withLines(ctx, s)
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	s = NewPending(t, userID)
	s.ClientName = client.WalkIn
	if err := e.sales.Create(ctx, s); err != nil {
		return nil, err
	}
	logger.Info(ctx, "pending sale created", "sale_id", s.ID)
	return s, nil
}

// Restore reconstructs the draft cart after a reload or crash: the Pending
// sale and its lines are loaded back from their persisted rows.
func (e *Engine) Restore(ctx context.Context) (*Sale, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	s, err := e.sales.GetPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.withLines(ctx, s)
}

func (e *Engine) withLines(ctx context.Context, s *Sale) (*Sale, error) {
	lines, err := e.sales.GetLines(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return s, nil
}

// AddItem adds quantity of a product in the given sale unit. An existing
// (product, unit) line is merged via quantity update. Stock is reserved with
// a conditional decrement before the line row is inserted; the transaction
// guarantees both or neither.
func (e *Engine) AddItem(ctx context.Context, productID id.ID, quantity int64, unit product.Unit) (*Sale, error) {
	if quantity < 1 {
		return nil, apperror.NewValidation("quantity must be at least 1").
			WithDetail("field", "quantity")
	}
	if !product.ValidUnit(unit) {
		return nil, apperror.NewValidation("unknown sale unit").
			WithDetail("unit", string(unit))
	}

	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.FindOrCreatePending(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}

		p, err := e.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		tier, ok := p.Tier(unit)
		if !ok {
			return apperror.NewValidation("product is not sold in this unit").
				WithDetail("product_id", productID.String()).
				WithDetail("unit", string(unit))
		}

		if existing := s.LineByProductUnit(productID, unit); existing != nil {
			if err := e.applyQuantity(ctx, s, existing, p, existing.Quantity+quantity); err != nil {
				return err
			}
			result = s
			return nil
		}

		needed := types.Quantity(quantity) * tier.Factor
		if needed > p.Stock {
			return apperror.NewInsufficientStock(productID.String(), int64(needed), int64(p.Stock))
		}
		if err := e.products.ReserveStock(ctx, productID, needed); err != nil {
			return err
		}

		// A base-unit line carries the base price; tier prices are applied
		// on explicit unit change, matching the reference behavior.
		price := types.Zero()
		if unit == product.UnitBase {
			price = p.Price
		}

		line := Line{
			ID:          id.New(),
			SaleID:      s.ID,
			Kind:        KindNormal,
			ProductID:   productID,
			ProductName: p.Name,
			Unit:        unit,
			Quantity:    quantity,
			Factor:      tier.Factor,
			UnitPrice:   price,
			CreatedAt:   time.Now().UTC(),
		}
		line.recalc()

		if err := e.sales.InsertLine(ctx, &line); err != nil {
			return err
		}
		s.Lines = append(s.Lines, line)

		if err := e.updateHeaderTotals(ctx, s); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateQuantity changes a line's quantity, reserving or releasing the stock
// difference. A quantity below 1 removes the line. When the line is in the
// base unit and the new quantity equals a tier's conversion factor, the line
// is promoted to one unit of that tier (see Options.AutoTierPromotion).
func (e *Engine) UpdateQuantity(ctx context.Context, productID id.ID, newQuantity int64) (*Sale, error) {
	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, line, err := e.pendingLine(ctx, productID)
		if err != nil {
			return err
		}
		if newQuantity < 1 {
			if err := e.removeLine(ctx, s, line); err != nil {
				return err
			}
			result = s
			return nil
		}

		p, err := e.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := e.applyQuantity(ctx, s, line, p, newQuantity); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyQuantity performs the release-then-reserve stock math for a new
// quantity, including the implicit tier promotion.
func (e *Engine) applyQuantity(ctx context.Context, s *Sale, line *Line, p *product.Product, newQuantity int64) error {
	targetUnit := line.Unit
	targetFactor := line.Factor
	targetPrice := line.UnitPrice
	targetQty := newQuantity

	if e.opts.AutoTierPromotion && line.Unit == product.UnitBase {
		if unit, tier, ok := p.MatchTierFactor(types.Quantity(newQuantity)); ok {
			targetUnit = unit
			targetFactor = tier.Factor
			targetPrice = tier.Price
			targetQty = 1
		}
	}

	reserved := line.ReservedStock()
	required := types.Quantity(targetQty) * targetFactor

	// originalStock is what the product held before this line reserved
	// anything; the new requirement must fit inside it.
	originalStock := p.Stock + reserved
	if required > originalStock {
		return apperror.NewInsufficientStock(p.ID.String(), int64(required), int64(originalStock))
	}

	delta := required - reserved
	switch {
	case delta > 0:
		if err := e.products.ReserveStock(ctx, p.ID, delta); err != nil {
			return err
		}
	case delta < 0:
		if err := e.products.ReleaseStock(ctx, p.ID, delta.Neg()); err != nil {
			return err
		}
	}

	line.Unit = targetUnit
	line.Factor = targetFactor
	line.UnitPrice = targetPrice
	line.Quantity = targetQty
	line.recalc()

	if err := e.sales.UpdateLine(ctx, line); err != nil {
		return err
	}
	return e.updateHeaderTotals(ctx, s)
}

// ChangeUnit switches a line to another sale unit at the same quantity,
// repricing it and adjusting reserved stock release-then-reserve style.
func (e *Engine) ChangeUnit(ctx context.Context, productID id.ID, newUnit product.Unit) (*Sale, error) {
	if !product.ValidUnit(newUnit) {
		return nil, apperror.NewValidation("unknown sale unit").
			WithDetail("unit", string(newUnit))
	}

	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, line, err := e.pendingLine(ctx, productID)
		if err != nil {
			return err
		}
		p, err := e.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		tier, ok := p.Tier(newUnit)
		if !ok {
			return apperror.NewValidation("product is not sold in this unit").
				WithDetail("product_id", productID.String()).
				WithDetail("unit", string(newUnit))
		}

		reserved := line.ReservedStock()
		required := types.Quantity(line.Quantity) * tier.Factor
		originalStock := p.Stock + reserved
		if required > originalStock {
			return apperror.NewInsufficientStock(p.ID.String(), int64(required), int64(originalStock))
		}

		delta := required - reserved
		switch {
		case delta > 0:
			if err := e.products.ReserveStock(ctx, p.ID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := e.products.ReleaseStock(ctx, p.ID, delta.Neg()); err != nil {
				return err
			}
		}

		line.Unit = newUnit
		line.Factor = tier.Factor
		line.UnitPrice = tier.Price
		line.recalc()

		if err := e.sales.UpdateLine(ctx, line); err != nil {
			return err
		}
		if err := e.updateHeaderTotals(ctx, s); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveItem deletes the line holding the given product, returning its
// reserved stock first.
func (e *Engine) RemoveItem(ctx context.Context, productID id.ID) (*Sale, error) {
	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, line, err := e.pendingLine(ctx, productID)
		if err != nil {
			return err
		}
		if err := e.removeLine(ctx, s, line); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveRedeemedItem deletes a redeemed line. No stock is returned and no
// points move: neither was touched before completion.
func (e *Engine) RemoveRedeemedItem(ctx context.Context, redeemableID id.ID) (*Sale, error) {
	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}
		for i := range s.Lines {
			l := &s.Lines[i]
			if l.Kind == KindRedeemed && l.RedeemableID == redeemableID {
				if err := e.removeLine(ctx, s, l); err != nil {
					return err
				}
				result = s
				return nil
			}
		}
		return apperror.NewNotFound("redeemed line", redeemableID.String())
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// removeLine releases stock for normal lines, deletes the row and drops the
// in-memory entry.
func (e *Engine) removeLine(ctx context.Context, s *Sale, line *Line) error {
	if line.Kind == KindNormal {
		if reserved := line.ReservedStock(); reserved > 0 {
			if err := e.products.ReleaseStock(ctx, line.ProductID, reserved); err != nil {
				return err
			}
		}
	}
	if err := e.sales.DeleteLine(ctx, line.ID); err != nil {
		return err
	}
	for i := range s.Lines {
		if s.Lines[i].ID == line.ID {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			break
		}
	}
	return e.updateHeaderTotals(ctx, s)
}

// RedeemPoints appends a zero-price redeemed line for a loyalty redemption.
// The client's balance must cover this and every prior redemption on the
// cart; points and redeemable stock move only at completion.
func (e *Engine) RedeemPoints(ctx context.Context, item RedeemedItem) (*Sale, error) {
	if item.PointsCost <= 0 {
		return nil, apperror.NewValidation("points cost must be positive").
			WithDetail("field", "pointsCost")
	}

	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}
		if s.ClientID == nil {
			return apperror.NewValidation("a client must be selected to redeem points")
		}

		c, err := e.clients.GetByID(ctx, *s.ClientID)
		if err != nil {
			return err
		}
		required := s.RedeemedPoints() + item.PointsCost
		if c.Points < required {
			return apperror.NewInsufficientPoints(c.ID.String(), required, c.Points)
		}

		line := Line{
			ID:           id.New(),
			SaleID:       s.ID,
			Kind:         KindRedeemed,
			ProductName:  item.Name,
			RedeemableID: item.ID,
			PointsCost:   item.PointsCost,
			UnitPrice:    types.Zero(),
			Subtotal:     types.Zero(),
			Quantity:     1,
			CreatedAt:    time.Now().UTC(),
		}
		if err := e.sales.InsertLine(ctx, &line); err != nil {
			return err
		}
		s.Lines = append(s.Lines, line)

		if err := e.updateHeaderTotals(ctx, s); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AttachClient links a client to the draft (nil detaches, back to walk-in).
func (e *Engine) AttachClient(ctx context.Context, clientID *id.ID) (*Sale, error) {
	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}
		if clientID == nil {
			if s.RedeemedPoints() > 0 {
				return apperror.NewValidation("cannot detach client while redeemed lines exist")
			}
			s.ClientID = nil
			s.ClientName = client.WalkIn
		} else {
			c, err := e.clients.GetByID(ctx, *clientID)
			if err != nil {
				return err
			}
			s.ClientID = &c.ID
			s.ClientName = c.Name
		}
		s.Touch()
		if err := e.sales.Update(ctx, s); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetDiscount applies a percentage or fixed discount; they are mutually
// exclusive and the setters clear the counterpart.
func (e *Engine) SetDiscount(ctx context.Context, percent, amount types.Money) (*Sale, error) {
	var result *Sale
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}
		if amount.IsPositive() {
			if err := s.SetDiscountAmount(amount); err != nil {
				return err
			}
		} else {
			if err := s.SetDiscountPercent(percent); err != nil {
				return err
			}
		}
		if err := e.updateHeaderTotals(ctx, s); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetNote stores the receipt note on the draft.
func (e *Engine) SetNote(ctx context.Context, note string) error {
	return e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}
		s.Note = note
		s.Touch()
		return e.sales.Update(ctx, s)
	})
}

// Cancel aborts the draft: reserved stock of every normal line returns to its
// product and the sale becomes Cancelled with zero totals.
func (e *Engine) Cancel(ctx context.Context) error {
	return e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.Restore(ctx)
		if err != nil {
			return err
		}
		if err := s.CanMutate(); err != nil {
			return err
		}

		for i := range s.Lines {
			l := &s.Lines[i]
			if l.Kind != KindNormal {
				continue
			}
			if reserved := l.ReservedStock(); reserved > 0 {
				if err := e.products.ReleaseStock(ctx, l.ProductID, reserved); err != nil {
					return err
				}
			}
		}

		s.Status = StatusCancelled
		s.Subtotal = types.Zero()
		s.Tax = types.Zero()
		s.AmountDue = types.Zero()
		s.Touch()
		if err := e.sales.Update(ctx, s); err != nil {
			return err
		}
		logger.Info(ctx, "sale cancelled", "sale_id", s.ID)
		return nil
	})
}

// pendingLine loads the draft and resolves the normal line for a product.
func (e *Engine) pendingLine(ctx context.Context, productID id.ID) (*Sale, *Line, error) {
	s, err := e.Restore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := s.CanMutate(); err != nil {
		return nil, nil, err
	}
	line := s.LineByProduct(productID)
	if line == nil {
		return nil, nil, apperror.NewNotFound("cart line", productID.String())
	}
	return s, line, nil
}

// updateHeaderTotals recomputes and persists the draft's running totals.
func (e *Engine) updateHeaderTotals(ctx context.Context, s *Sale) error {
	totals := ComputeSaleTotals(s, types.Zero())
	s.Subtotal = totals.Subtotal
	s.Tax = totals.Tax
	s.AmountDue = totals.AmountDue
	s.Touch()
	return e.sales.Update(ctx, s)
}
