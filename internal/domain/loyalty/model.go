// Package loyalty provides points promotions, the redeemable-products
// catalog, and the settlement of earn/redeem at sale completion.
package loyalty

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
)

// Promotion multiplies the points earned per completed sale.
type Promotion struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	Name string `db:"name" json:"name"`

	// Multiplier scales earned points: floor(amount due × multiplier).
	Multiplier types.Money `db:"multiplier" json:"multiplier"`

	Active    bool      `db:"active" json:"active"`
	ValidFrom time.Time `db:"valid_from" json:"validFrom"`
	ValidTo   time.Time `db:"valid_to" json:"validTo"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AppliesOn reports whether the promotion is active and in window.
func (p *Promotion) AppliesOn(t time.Time) bool {
	if !p.Active {
		return false
	}
	return !t.Before(p.ValidFrom) && !t.After(p.ValidTo)
}

// Validate implements invariant checks before persistence.
func (p *Promotion) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !p.Multiplier.IsPositive() {
		return apperror.NewValidation("multiplier must be positive").
			WithDetail("field", "multiplier")
	}
	return nil
}

// RedeemableStatus derives from the redeemable's own stock counter.
type RedeemableStatus string

const (
	RedeemableAvailable RedeemableStatus = "available"
	RedeemableExhausted RedeemableStatus = "exhausted"
)

// Redeemable is a points-catalog entry tied to a promotion, with its own
// stock decremented on each settled redemption.
type Redeemable struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	PromotionID id.ID  `db:"promotion_id" json:"promotionId"`
	Name        string `db:"name" json:"name"`
	PointsCost  int64  `db:"points_cost" json:"pointsCost"`

	Stock  types.Quantity   `db:"stock" json:"stock"`
	Status RedeemableStatus `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewRedeemable creates a redeemable entry scoped to the given tenant.
func NewRedeemable(t tenant.Tenant, promotionID id.ID, name string, pointsCost int64, stock types.Quantity) *Redeemable {
	status := RedeemableAvailable
	if stock <= 0 {
		status = RedeemableExhausted
	}
	return &Redeemable{
		ID:          id.New(),
		SiteID:      t.SiteID,
		CompanyID:   t.CompanyID,
		PromotionID: promotionID,
		Name:        name,
		PointsCost:  pointsCost,
		Stock:       stock,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate implements invariant checks before persistence.
func (r *Redeemable) Validate(ctx context.Context) error {
	if r.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if r.PointsCost <= 0 {
		return apperror.NewValidation("points cost must be positive").
			WithDetail("field", "pointsCost")
	}
	if r.Stock.IsNegative() {
		return apperror.NewValidation("stock cannot be negative").
			WithDetail("field", "stock")
	}
	return nil
}

// HistoryEntry is the audit record of one settled redemption.
type HistoryEntry struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	SaleID       id.ID `db:"sale_id" json:"saleId"`
	RedeemableID id.ID `db:"redeemable_id" json:"redeemableId"`
	ClientID     id.ID `db:"client_id" json:"clientId"`
	Points       int64 `db:"points" json:"points"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Repository defines tenant-scoped persistence for the loyalty catalog.
type Repository interface {
	CreatePromotion(ctx context.Context, p *Promotion) error
	UpdatePromotion(ctx context.Context, p *Promotion) error
	ListPromotions(ctx context.Context, limit, offset int) ([]*Promotion, error)

	// FindActivePromotion returns the promotion in effect at the given time,
	// or NotFound when no promotion applies.
	FindActivePromotion(ctx context.Context, at time.Time) (*Promotion, error)

	CreateRedeemable(ctx context.Context, r *Redeemable) error
	GetRedeemable(ctx context.Context, redeemableID id.ID) (*Redeemable, error)
	UpdateRedeemable(ctx context.Context, r *Redeemable) error
	ListRedeemables(ctx context.Context, availableOnly bool, limit, offset int) ([]*Redeemable, error)

	// ConsumeRedeemable decrements the redeemable's stock by one and flips
	// its status to exhausted at zero, in a single statement.
	ConsumeRedeemable(ctx context.Context, redeemableID id.ID) error

	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistoryByClient(ctx context.Context, clientID id.ID, limit, offset int) ([]HistoryEntry, error)
}
