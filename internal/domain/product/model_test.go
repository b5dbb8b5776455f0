package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
)

func tiered() *Product {
	t := tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
	p := New(t, "Amoxicillin 250mg", types.MustMoney("1.20"))
	blisterPrice, blisterFactor := types.MustMoney("10.00"), types.Quantity(10)
	boxPrice, boxFactor := types.MustMoney("90.00"), types.Quantity(100)
	p.BlisterPrice, p.BlisterFactor = &blisterPrice, &blisterFactor
	p.BoxPrice, p.BoxFactor = &boxPrice, &boxFactor
	return p
}

func TestTier(t *testing.T) {
	p := tiered()

	base, ok := p.Tier(UnitBase)
	require.True(t, ok)
	assert.Equal(t, types.Quantity(1), base.Factor)
	assert.True(t, base.Price.Equal(types.MustMoney("1.20")))

	blister, ok := p.Tier(UnitBlister)
	require.True(t, ok)
	assert.Equal(t, types.Quantity(10), blister.Factor)

	_, ok = p.Tier(UnitPackage)
	assert.False(t, ok, "unset tier is not sold")
}

func TestMatchTierFactor(t *testing.T) {
	p := tiered()

	unit, tier, ok := p.MatchTierFactor(10)
	require.True(t, ok)
	assert.Equal(t, UnitBlister, unit)
	assert.True(t, tier.Price.Equal(types.MustMoney("10.00")))

	unit, _, ok = p.MatchTierFactor(100)
	require.True(t, ok)
	assert.Equal(t, UnitBox, unit)

	_, _, ok = p.MatchTierFactor(7)
	assert.False(t, ok)
}

func TestIsLowStock(t *testing.T) {
	p := tiered()
	p.MinStock = 5

	p.Stock = 6
	assert.False(t, p.IsLowStock())
	p.Stock = 5
	assert.True(t, p.IsLowStock(), "threshold is inclusive")
	p.Stock = 0
	assert.True(t, p.IsLowStock())
}

func TestValidate(t *testing.T) {
	p := tiered()
	assert.NoError(t, p.Validate(context.Background()))

	noName := tiered()
	noName.Name = ""
	assert.Error(t, noName.Validate(context.Background()))

	negative := tiered()
	negative.Price = types.MustMoney("-1")
	assert.Error(t, negative.Validate(context.Background()))
}
