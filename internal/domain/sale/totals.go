package sale

import (
	"github.com/shopspring/decimal"

	"farmapos/internal/core/types"
)

// TaxRate is the single VAT rate applied to every sale (18%, tax-inclusive
// pricing: the tax is extracted from the discounted total).
var TaxRate = decimal.New(18, -2)

var (
	cashRoundingUnit       = decimal.New(10, -2) // 0.10
	electronicRoundingUnit = decimal.New(1, -2)  // 0.01
	hundred                = decimal.NewFromInt(100)
)

// Totals is the breakdown shown at checkout and stamped on completion.
type Totals struct {
	Subtotal types.Money `json:"subtotal"`
	Discount types.Money `json:"discount"`
	// Net is subtotal minus discount, before rounding.
	Net     types.Money `json:"net"`
	TaxBase types.Money `json:"taxBase"`
	Tax     types.Money `json:"tax"`
	// AmountDue is Net rounded to the payment method's rounding unit.
	AmountDue types.Money `json:"amountDue"`
	// Rounding is AmountDue minus Net, within half a rounding unit.
	Rounding types.Money `json:"rounding"`
	Change   types.Money `json:"change"`
}

// RoundingUnit returns the cash rounding granularity for a payment method.
// Cash rounds to the nearest ten-cent; everything else to the cent.
func RoundingUnit(method PaymentMethod) types.Money {
	if method == PayCash {
		return cashRoundingUnit
	}
	return electronicRoundingUnit
}

// ComputeTotals is the pure totals calculator. Discount percent and amount
// are mutually exclusive; the amount wins when positive (the setters on Sale
// keep them exclusive, so both being set never happens in practice).
func ComputeTotals(lines []Line, discountPercent, discountAmount types.Money, method PaymentMethod, amountTendered types.Money) Totals {
	subtotal := types.Zero()
	for i := range lines {
		subtotal = subtotal.Add(lines[i].Subtotal)
	}

	var discount types.Money
	if discountAmount.IsPositive() {
		discount = discountAmount
	} else {
		discount = subtotal.Mul(discountPercent).Div(hundred)
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	net := subtotal.Sub(discount)

	// Prices are tax-inclusive: base = net / (1 + rate), tax = net - base.
	taxBase := net.Div(decimal.NewFromInt(1).Add(TaxRate))
	tax := net.Sub(taxBase)

	unit := RoundingUnit(method)
	amountDue := types.RoundToUnit(net, unit)
	rounding := amountDue.Sub(net)

	change := types.Zero()
	if method == PayCash && amountTendered.IsPositive() {
		change = amountTendered.Sub(amountDue)
	}

	return Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Net:       net,
		TaxBase:   taxBase.Round(2),
		Tax:       tax.Round(2),
		AmountDue: amountDue,
		Rounding:  rounding,
		Change:    change,
	}
}

// ComputeSaleTotals applies ComputeTotals to a sale's own discount fields.
func ComputeSaleTotals(s *Sale, amountTendered types.Money) Totals {
	return ComputeTotals(s.Lines, s.DiscountPercent, s.DiscountAmount, s.PaymentMethod, amountTendered)
}
