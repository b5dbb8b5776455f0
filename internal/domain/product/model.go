// Package product provides the pharmacy product catalog.
// Stock is always counted in the smallest sale unit; tiered packaging
// (blister, box, package) carries its own price and a conversion factor
// expressing how many base units one tier unit contains.
package product

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
)

// Unit is a sale-unit tier.
type Unit string

const (
	UnitBase    Unit = "unit"
	UnitBlister Unit = "blister"
	UnitBox     Unit = "box"
	UnitPackage Unit = "package"
)

// ValidUnit reports whether u names a known tier.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitBase, UnitBlister, UnitBox, UnitPackage:
		return true
	}
	return false
}

// TierPricing is the price and conversion factor of one packaging tier.
// Factor is the number of base units per tier unit.
type TierPricing struct {
	Price  types.Money    `db:"-" json:"price"`
	Factor types.Quantity `db:"-" json:"factor"`
}

// Product is a catalog entry with per-base-unit stock.
type Product struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	Name    string `db:"name" json:"name"`
	Barcode string `db:"barcode" json:"barcode,omitempty"`

	// Cost and Price refer to one base unit.
	Cost  types.Money `db:"cost" json:"cost"`
	Price types.Money `db:"price" json:"price"`

	// Stock in base units. Never mutated by read-modify-write: the repository
	// reserves with a single conditional UPDATE.
	Stock    types.Quantity `db:"stock" json:"stock"`
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// Optional packaging tiers. A nil tier is not sold in that unit.
	BlisterPrice  *types.Money    `db:"blister_price" json:"blisterPrice,omitempty"`
	BlisterFactor *types.Quantity `db:"blister_factor" json:"blisterFactor,omitempty"`
	BoxPrice      *types.Money    `db:"box_price" json:"boxPrice,omitempty"`
	BoxFactor     *types.Quantity `db:"box_factor" json:"boxFactor,omitempty"`
	PackagePrice  *types.Money    `db:"package_price" json:"packagePrice,omitempty"`
	PackageFactor *types.Quantity `db:"package_factor" json:"packageFactor,omitempty"`

	// UnitsSold is the lifetime sale counter, incremented at completion.
	UnitsSold types.Quantity `db:"units_sold" json:"unitsSold"`

	ExpiresAt *time.Time `db:"expires_at" json:"expiresAt,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a product scoped to the given tenant.
func New(t tenant.Tenant, name string, price types.Money) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        id.New(),
		SiteID:    t.SiteID,
		CompanyID: t.CompanyID,
		Name:      name,
		Price:     price,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Tier returns the pricing of the requested sale unit.
// The base unit always exists with factor 1.
func (p *Product) Tier(u Unit) (TierPricing, bool) {
	switch u {
	case UnitBase:
		return TierPricing{Price: p.Price, Factor: 1}, true
	case UnitBlister:
		if p.BlisterPrice != nil && p.BlisterFactor != nil {
			return TierPricing{Price: *p.BlisterPrice, Factor: *p.BlisterFactor}, true
		}
	case UnitBox:
		if p.BoxPrice != nil && p.BoxFactor != nil {
			return TierPricing{Price: *p.BoxPrice, Factor: *p.BoxFactor}, true
		}
	case UnitPackage:
		if p.PackagePrice != nil && p.PackageFactor != nil {
			return TierPricing{Price: *p.PackagePrice, Factor: *p.PackageFactor}, true
		}
	}
	return TierPricing{}, false
}

// Factor returns base units per one unit of tier u (0 if the tier is unset).
func (p *Product) Factor(u Unit) types.Quantity {
	if tier, ok := p.Tier(u); ok {
		return tier.Factor
	}
	return 0
}

// promotionOrder is the priority in which a base-unit quantity is matched
// against tier factors: package first, then box, then blister.
var promotionOrder = []Unit{UnitPackage, UnitBox, UnitBlister}

// MatchTierFactor finds the highest-priority tier whose conversion factor
// equals qty exactly. Used by the cart's implicit tier promotion.
func (p *Product) MatchTierFactor(qty types.Quantity) (Unit, TierPricing, bool) {
	for _, u := range promotionOrder {
		if tier, ok := p.Tier(u); ok && tier.Factor == qty {
			return u, tier, true
		}
	}
	return "", TierPricing{}, false
}

// IsLowStock reports whether stock is at or below the minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// Validate implements invariant checks before persistence.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}
	if p.Stock.IsNegative() {
		return apperror.NewValidation("stock cannot be negative").
			WithDetail("field", "stock")
	}
	for _, u := range []Unit{UnitBlister, UnitBox, UnitPackage} {
		tier, ok := p.Tier(u)
		if !ok {
			continue
		}
		if tier.Factor < 1 {
			return apperror.NewValidation("tier conversion factor must be at least 1").
				WithDetail("unit", string(u))
		}
		if tier.Price.IsNegative() {
			return apperror.NewValidation("tier price cannot be negative").
				WithDetail("unit", string(u))
		}
	}
	return nil
}

// Touch updates the modification timestamp and version.
func (p *Product) Touch() {
	p.UpdatedAt = time.Now().UTC()
	p.Version++
}
