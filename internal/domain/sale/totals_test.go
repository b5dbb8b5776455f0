package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"farmapos/internal/core/types"
)

func line(subtotal string) Line {
	return Line{Kind: KindNormal, Quantity: 1, Factor: 1, Subtotal: types.MustMoney(subtotal)}
}

func TestComputeTotals_TaxExtraction(t *testing.T) {
	// Prices are tax-inclusive: a 118.00 net carries exactly 18.00 of VAT.
	totals := ComputeTotals([]Line{line("118.00")}, types.Zero(), types.Zero(), PayMobileWallet, types.Zero())

	assert.True(t, totals.Subtotal.Equal(types.MustMoney("118.00")), "subtotal: %s", totals.Subtotal)
	assert.True(t, totals.TaxBase.Equal(types.MustMoney("100.00")), "tax base: %s", totals.TaxBase)
	assert.True(t, totals.Tax.Equal(types.MustMoney("18.00")), "tax: %s", totals.Tax)
	assert.True(t, totals.AmountDue.Equal(types.MustMoney("118.00")), "amount due: %s", totals.AmountDue)
}

func TestComputeTotals_Rounding(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		method   PaymentMethod
		wantDue  string
	}{
		{"cash rounds down to ten cents", "10.54", PayCash, "10.50"},
		{"cash rounds up to ten cents", "10.55", PayCash, "10.60"},
		{"cash exact", "10.50", PayCash, "10.50"},
		{"electronic keeps cents", "10.54", PayMobileWallet, "10.54"},
		{"bank transfer keeps cents", "10.55", PayBankTransfer, "10.55"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := ComputeTotals([]Line{line(tt.subtotal)}, types.Zero(), types.Zero(), tt.method, types.Zero())
			assert.True(t, totals.AmountDue.Equal(types.MustMoney(tt.wantDue)),
				"amount due: want %s got %s", tt.wantDue, totals.AmountDue)
			assert.True(t, totals.Rounding.Equal(totals.AmountDue.Sub(totals.Net)),
				"rounding must equal amountDue-net")
		})
	}
}

func TestComputeTotals_DiscountPercent(t *testing.T) {
	totals := ComputeTotals([]Line{line("200.00")}, types.NewMoney(10), types.Zero(), PayMobileWallet, types.Zero())

	assert.True(t, totals.Discount.Equal(types.MustMoney("20.00")), "discount: %s", totals.Discount)
	assert.True(t, totals.Net.Equal(types.MustMoney("180.00")), "net: %s", totals.Net)
}

func TestComputeTotals_DiscountAmountWins(t *testing.T) {
	// The setters keep percent and amount exclusive; the calculator prefers
	// the amount when both somehow arrive.
	totals := ComputeTotals([]Line{line("100.00")}, types.NewMoney(50), types.MustMoney("5.00"), PayMobileWallet, types.Zero())

	assert.True(t, totals.Discount.Equal(types.MustMoney("5.00")), "discount: %s", totals.Discount)
}

func TestComputeTotals_DiscountCappedAtSubtotal(t *testing.T) {
	totals := ComputeTotals([]Line{line("30.00")}, types.Zero(), types.MustMoney("50.00"), PayCash, types.Zero())

	assert.True(t, totals.Discount.Equal(types.MustMoney("30.00")), "discount: %s", totals.Discount)
	assert.True(t, totals.Net.IsZero(), "net: %s", totals.Net)
	assert.True(t, totals.AmountDue.IsZero(), "amount due: %s", totals.AmountDue)
}

func TestComputeTotals_CashChange(t *testing.T) {
	totals := ComputeTotals([]Line{line("47.30")}, types.Zero(), types.Zero(), PayCash, types.MustMoney("50.00"))

	assert.True(t, totals.AmountDue.Equal(types.MustMoney("47.30")), "amount due: %s", totals.AmountDue)
	assert.True(t, totals.Change.Equal(types.MustMoney("2.70")), "change: %s", totals.Change)
}

func TestComputeTotals_NoChangeOnElectronic(t *testing.T) {
	totals := ComputeTotals([]Line{line("47.30")}, types.Zero(), types.Zero(), PayBankTransfer, types.MustMoney("50.00"))

	assert.True(t, totals.Change.IsZero(), "change: %s", totals.Change)
}

func TestComputeTotals_ManyLinesAccumulate(t *testing.T) {
	var lines []Line
	expected := types.Zero()
	for i := 0; i < 50; i++ {
		l := line("1.37")
		lines = append(lines, l)
		expected = expected.Add(l.Subtotal)
	}

	totals := ComputeTotals(lines, types.Zero(), types.Zero(), PayMobileWallet, types.Zero())
	assert.True(t, totals.Subtotal.Equal(expected), "subtotal: want %s got %s", expected, totals.Subtotal)
	// The rounded tax base and tax must reassemble the net within a cent.
	drift := totals.TaxBase.Add(totals.Tax).Sub(totals.Net).Abs()
	assert.True(t, drift.LessThanOrEqual(decimal.New(1, -2)), "drift: %s", drift)
}

func TestComputeTotals_RedeemedLinesAreFree(t *testing.T) {
	lines := []Line{
		line("25.00"),
		{Kind: KindRedeemed, Quantity: 1, PointsCost: 100, Subtotal: types.Zero()},
	}
	totals := ComputeTotals(lines, types.Zero(), types.Zero(), PayCash, types.Zero())

	assert.True(t, totals.Subtotal.Equal(types.MustMoney("25.00")), "subtotal: %s", totals.Subtotal)
}

func TestRoundingUnit(t *testing.T) {
	assert.True(t, RoundingUnit(PayCash).Equal(types.MustMoney("0.10")))
	assert.True(t, RoundingUnit(PayMobileWallet).Equal(types.MustMoney("0.01")))
	assert.True(t, RoundingUnit(PayBankTransfer).Equal(types.MustMoney("0.01")))
	assert.True(t, RoundingUnit(PayOther).Equal(types.MustMoney("0.01")))
}
