// Package commission provides per-product sale incentives: rules matched
// against sold lines at completion, producing one commission record per
// (sale, line, rule) attributed to the selling operator.
package commission

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
)

// RuleType selects how the commission amount is computed.
type RuleType string

const (
	// TypePercentage pays a percentage of the line subtotal.
	TypePercentage RuleType = "percentage"
	// TypeFixedAmount pays a fixed amount per base unit sold.
	TypeFixedAmount RuleType = "fixed_amount"
)

// Rule binds a product to a commission with a validity window.
type Rule struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	ProductID id.ID       `db:"product_id" json:"productId"`
	Type      RuleType    `db:"type" json:"type"`
	Value     types.Money `db:"value" json:"value"`

	ValidFrom time.Time `db:"valid_from" json:"validFrom"`
	ValidTo   time.Time `db:"valid_to" json:"validTo"`
	Active    bool      `db:"active" json:"active"`

	// Condition is an optional CEL expression over the sold line
	// (units, subtotal, unit, payment_method). An empty condition matches.
	Condition string `db:"condition" json:"condition,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewRule creates a rule scoped to the given tenant.
func NewRule(t tenant.Tenant, productID id.ID, ruleType RuleType, value types.Money, from, to time.Time) *Rule {
	return &Rule{
		ID:        id.New(),
		SiteID:    t.SiteID,
		CompanyID: t.CompanyID,
		ProductID: productID,
		Type:      ruleType,
		Value:     value,
		ValidFrom: from,
		ValidTo:   to,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// AppliesOn reports whether the rule is active and its window contains t.
func (r *Rule) AppliesOn(t time.Time) bool {
	if !r.Active {
		return false
	}
	return !t.Before(r.ValidFrom) && !t.After(r.ValidTo)
}

// Validate implements invariant checks before persistence.
func (r *Rule) Validate(ctx context.Context) error {
	if id.IsNil(r.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if r.Type != TypePercentage && r.Type != TypeFixedAmount {
		return apperror.NewValidation("unknown commission type").
			WithDetail("field", "type")
	}
	if !r.Value.IsPositive() {
		return apperror.NewValidation("value must be positive").
			WithDetail("field", "value")
	}
	if r.ValidTo.Before(r.ValidFrom) {
		return apperror.NewValidation("validity window is inverted").
			WithDetail("field", "validTo")
	}
	return nil
}

// Record is one earned commission.
type Record struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	SaleID id.ID `db:"sale_id" json:"saleId"`
	LineID id.ID `db:"line_id" json:"lineId"`
	RuleID id.ID `db:"rule_id" json:"ruleId"`
	UserID id.ID `db:"user_id" json:"userId"`

	Amount    types.Money `db:"amount" json:"amount"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// Repository defines tenant-scoped persistence for rules and records.
type Repository interface {
	CreateRule(ctx context.Context, r *Rule) error
	UpdateRule(ctx context.Context, r *Rule) error
	GetRule(ctx context.Context, ruleID id.ID) (*Rule, error)
	ListRules(ctx context.Context, activeOnly bool, limit, offset int) ([]*Rule, error)

	// FindRuleForProduct returns the active rule whose window contains at,
	// or NotFound.
	FindRuleForProduct(ctx context.Context, productID id.ID, at time.Time) (*Rule, error)

	CreateRecords(ctx context.Context, records []Record) error
	ListRecordsByUser(ctx context.Context, userID id.ID, limit, offset int) ([]Record, error)
	ListRecordsBySale(ctx context.Context, saleID id.ID) ([]Record, error)
}
