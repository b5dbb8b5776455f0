// Package sale provides the point-of-sale cart engine: a Pending sale whose
// lines mirror persisted rows one to one, mutated transactionally against
// product stock, and finalized into a Completed sale with commissions and
// loyalty settlement.
package sale

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
)

// Status is the sale lifecycle state. Pending is the only mutable state;
// Completed and Cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethod selects the rounding unit and the reconciliation bucket.
type PaymentMethod string

const (
	PayCash         PaymentMethod = "cash"
	PayMobileWallet PaymentMethod = "mobile_wallet"
	PayBankTransfer PaymentMethod = "bank_transfer"
	PayOther        PaymentMethod = "other"
)

// LineKind distinguishes inventory lines from loyalty redemptions.
// Replaces the legacy negative-product-id convention.
type LineKind string

const (
	KindNormal   LineKind = "normal"
	KindRedeemed LineKind = "redeemed"
)

// Line is one cart entry, backed by exactly one persisted sale_lines row.
type Line struct {
	ID     id.ID    `db:"id" json:"id"`
	SaleID id.ID    `db:"sale_id" json:"saleId"`
	Kind   LineKind `db:"kind" json:"kind"`

	// Normal lines reference a product sold in a tier unit.
	ProductID   id.ID          `db:"product_id" json:"productId,omitempty"`
	ProductName string         `db:"product_name" json:"productName"`
	Unit        product.Unit   `db:"unit" json:"unit,omitempty"`
	Quantity    int64          `db:"quantity" json:"quantity"`
	Factor      types.Quantity `db:"factor" json:"factor"`
	UnitPrice   types.Money    `db:"unit_price" json:"unitPrice"`
	Subtotal    types.Money    `db:"subtotal" json:"subtotal"`

	// Redeemed lines reference a redeemable catalog entry at zero price.
	RedeemableID id.ID `db:"redeemable_id" json:"redeemableId,omitempty"`
	PointsCost   int64 `db:"points_cost" json:"pointsCost,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ReservedStock is the number of base units this line holds against the
// product. Redeemed lines reserve nothing until completion.
func (l *Line) ReservedStock() types.Quantity {
	if l.Kind != KindNormal {
		return 0
	}
	return types.Quantity(l.Quantity) * l.Factor
}

// recalc recomputes the line subtotal from quantity and unit price.
func (l *Line) recalc() {
	l.Subtotal = l.UnitPrice.Mul(types.Quantity(l.Quantity).Money())
}

// Sale is the draft/completed sale header.
type Sale struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`
	UserID    id.ID `db:"user_id" json:"userId"`

	Status Status `db:"status" json:"status"`

	// ClientID is nil for walk-in sales; ClientName then carries the sentinel.
	ClientID   *id.ID `db:"client_id" json:"clientId,omitempty"`
	ClientName string `db:"client_name" json:"clientName"`

	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// DiscountPercent and DiscountAmount are mutually exclusive;
	// setting one clears the other.
	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  types.Money `db:"discount_amount" json:"discountAmount"`

	Subtotal  types.Money `db:"subtotal" json:"subtotal"`
	Tax       types.Money `db:"tax" json:"tax"`
	AmountDue types.Money `db:"amount_due" json:"amountDue"`

	// Note is free text printed on the receipt.
	Note string `db:"note" json:"note,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// NewPending creates an empty Pending sale for the given operator.
func NewPending(t tenant.Tenant, userID id.ID) *Sale {
	now := time.Now().UTC()
	return &Sale{
		ID:              id.New(),
		SiteID:          t.SiteID,
		CompanyID:       t.CompanyID,
		UserID:          userID,
		Status:          StatusPending,
		ClientName:      "",
		DiscountPercent: types.Zero(),
		DiscountAmount:  types.Zero(),
		Subtotal:        types.Zero(),
		Tax:             types.Zero(),
		AmountDue:       types.Zero(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CanMutate returns an error unless the sale is still Pending.
func (s *Sale) CanMutate() error {
	if s.Status != StatusPending {
		return apperror.NewSaleNotPending(s.ID.String(), string(s.Status))
	}
	return nil
}

// SetDiscountPercent sets a percentage discount and clears any fixed amount.
func (s *Sale) SetDiscountPercent(p types.Money) error {
	if p.IsNegative() || p.GreaterThan(types.NewMoney(100)) {
		return apperror.NewValidation("discount percent must be between 0 and 100").
			WithDetail("field", "discountPercent")
	}
	s.DiscountPercent = p
	s.DiscountAmount = types.Zero()
	return nil
}

// SetDiscountAmount sets a fixed discount and clears any percentage.
func (s *Sale) SetDiscountAmount(a types.Money) error {
	if a.IsNegative() {
		return apperror.NewValidation("discount amount cannot be negative").
			WithDetail("field", "discountAmount")
	}
	s.DiscountAmount = a
	s.DiscountPercent = types.Zero()
	return nil
}

// LineByProduct finds the line holding the given product, if any.
func (s *Sale) LineByProduct(productID id.ID) *Line {
	for i := range s.Lines {
		if s.Lines[i].Kind == KindNormal && s.Lines[i].ProductID == productID {
			return &s.Lines[i]
		}
	}
	return nil
}

// LineByProductUnit finds the line for an exact (product, unit) pair.
func (s *Sale) LineByProductUnit(productID id.ID, unit product.Unit) *Line {
	for i := range s.Lines {
		l := &s.Lines[i]
		if l.Kind == KindNormal && l.ProductID == productID && l.Unit == unit {
			return l
		}
	}
	return nil
}

// RedeemedPoints sums the points cost of all redeemed lines.
func (s *Sale) RedeemedPoints() int64 {
	var total int64
	for i := range s.Lines {
		if s.Lines[i].Kind == KindRedeemed {
			total += s.Lines[i].PointsCost
		}
	}
	return total
}

// Touch updates the modification timestamp.
func (s *Sale) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Validate implements invariant checks before persistence.
func (s *Sale) Validate(ctx context.Context) error {
	if id.IsNil(s.UserID) {
		return apperror.NewValidation("user is required").
			WithDetail("field", "userId")
	}
	if id.IsNil(s.SiteID) || id.IsNil(s.CompanyID) {
		return apperror.NewNoTenant()
	}
	return nil
}
