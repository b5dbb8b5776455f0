package commission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/sale"
)

// memRules serves rules by product and captures written records.
type memRules struct {
	Repository
	rules   map[id.ID]*Rule
	written []Record
}

func newMemRules(rules ...*Rule) *memRules {
	m := &memRules{rules: make(map[id.ID]*Rule)}
	for _, r := range rules {
		m.rules[r.ProductID] = r
	}
	return m
}

func (m *memRules) FindRuleForProduct(ctx context.Context, productID id.ID, at time.Time) (*Rule, error) {
	r, ok := m.rules[productID]
	if !ok {
		return nil, apperror.NewNotFound("commission rule", productID.String())
	}
	return r, nil
}

func (m *memRules) CreateRecords(ctx context.Context, records []Record) error {
	m.written = append(m.written, records...)
	return nil
}

func activeRule(productID id.ID, typ RuleType, value string) *Rule {
	t := tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
	now := time.Now().UTC()
	return NewRule(t, productID, typ, types.MustMoney(value), now.Add(-time.Hour), now.Add(time.Hour))
}

func soldLine(productID id.ID, quantity int64, factor types.Quantity, subtotal string) sale.Line {
	return sale.Line{
		ID:        id.New(),
		Kind:      sale.KindNormal,
		ProductID: productID,
		Quantity:  quantity,
		Factor:    factor,
		Subtotal:  types.MustMoney(subtotal),
	}
}

func completedSale(lines ...sale.Line) *sale.Sale {
	return &sale.Sale{
		ID:            id.New(),
		SiteID:        id.New(),
		CompanyID:     id.New(),
		UserID:        id.New(),
		Status:        sale.StatusCompleted,
		PaymentMethod: sale.PayCash,
		Lines:         lines,
	}
}

func TestGenerateForSale_Percentage(t *testing.T) {
	productID := id.New()
	repo := newMemRules(activeRule(productID, TypePercentage, "10"))
	g, err := NewGenerator(repo)
	require.NoError(t, err)

	s := completedSale(soldLine(productID, 2, 1, "50.00"))
	require.NoError(t, g.GenerateForSale(context.Background(), s))

	require.Len(t, repo.written, 1)
	rec := repo.written[0]
	assert.True(t, rec.Amount.Equal(types.MustMoney("5.00")), "amount: %s", rec.Amount)
	assert.Equal(t, s.ID, rec.SaleID)
	assert.Equal(t, s.UserID, rec.UserID)
	assert.Equal(t, s.Lines[0].ID, rec.LineID)
}

func TestGenerateForSale_FixedAmountPerBaseUnit(t *testing.T) {
	productID := id.New()
	repo := newMemRules(activeRule(productID, TypeFixedAmount, "0.50"))
	g, err := NewGenerator(repo)
	require.NoError(t, err)

	// One box of 3 base units: the fixed rate applies per base unit.
	s := completedSale(soldLine(productID, 1, 3, "9.00"))
	require.NoError(t, g.GenerateForSale(context.Background(), s))

	require.Len(t, repo.written, 1)
	assert.True(t, repo.written[0].Amount.Equal(types.MustMoney("1.50")), "amount: %s", repo.written[0].Amount)
}

func TestGenerateForSale_ConditionGates(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		wantPaid  bool
	}{
		{"units threshold met", "units >= 3", true},
		{"units threshold missed", "units >= 10", false},
		{"subtotal threshold met", "subtotal > 8.0", true},
		{"payment method match", `payment_method == "cash"`, true},
		{"payment method mismatch", `payment_method == "bank_transfer"`, false},
		{"broken condition disables the rule", "units >>> bogus", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			productID := id.New()
			rule := activeRule(productID, TypePercentage, "10")
			rule.Condition = tt.condition
			repo := newMemRules(rule)

			g, err := NewGenerator(repo)
			require.NoError(t, err)

			s := completedSale(soldLine(productID, 1, 3, "9.00"))
			require.NoError(t, g.GenerateForSale(context.Background(), s))

			if tt.wantPaid {
				assert.Len(t, repo.written, 1)
			} else {
				assert.Empty(t, repo.written)
			}
		})
	}
}

func TestGenerateForSale_SkipsInactiveAndUnmatched(t *testing.T) {
	withRule := id.New()
	noRule := id.New()
	inactive := activeRule(withRule, TypePercentage, "10")
	inactive.Active = false
	repo := newMemRules(inactive)

	g, err := NewGenerator(repo)
	require.NoError(t, err)

	s := completedSale(
		soldLine(withRule, 1, 1, "10.00"),
		soldLine(noRule, 1, 1, "10.00"),
	)
	require.NoError(t, g.GenerateForSale(context.Background(), s))
	assert.Empty(t, repo.written)
}

func TestGenerateForSale_IgnoresRedeemedLines(t *testing.T) {
	productID := id.New()
	repo := newMemRules(activeRule(productID, TypePercentage, "10"))
	g, err := NewGenerator(repo)
	require.NoError(t, err)

	redeemed := sale.Line{ID: id.New(), Kind: sale.KindRedeemed, ProductID: productID, Quantity: 1, Subtotal: types.Zero()}
	s := completedSale(redeemed)
	require.NoError(t, g.GenerateForSale(context.Background(), s))
	assert.Empty(t, repo.written)
}

func TestRuleValidate(t *testing.T) {
	productID := id.New()

	valid := activeRule(productID, TypePercentage, "5")
	assert.NoError(t, valid.Validate(context.Background()))

	badType := activeRule(productID, RuleType("bonus"), "5")
	assert.Error(t, badType.Validate(context.Background()))

	inverted := activeRule(productID, TypeFixedAmount, "5")
	inverted.ValidFrom, inverted.ValidTo = inverted.ValidTo, inverted.ValidFrom
	assert.Error(t, inverted.Validate(context.Background()))

	zeroValue := activeRule(productID, TypePercentage, "0")
	assert.Error(t, zeroValue.Validate(context.Background()))
}
