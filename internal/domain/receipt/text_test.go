package receipt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
	"farmapos/internal/domain/sale"
)

func TestTextRenderer(t *testing.T) {
	completedAt := time.Date(2026, 8, 12, 14, 30, 0, 0, time.UTC)
	s := &sale.Sale{
		ID:            id.New(),
		Status:        sale.StatusCompleted,
		ClientName:    "Maria Lopez",
		PaymentMethod: sale.PayCash,
		Note:          "deliver to counter 2",
		CompletedAt:   &completedAt,
		Lines: []sale.Line{
			{
				Kind:        sale.KindNormal,
				ProductName: "Aspirin 500mg",
				Unit:        product.UnitBox,
				Quantity:    2,
				Factor:      10,
				UnitPrice:   types.MustMoney("22.00"),
				Subtotal:    types.MustMoney("44.00"),
			},
			{
				Kind:        sale.KindRedeemed,
				ProductName: "Vitamin C",
				Quantity:    1,
				PointsCost:  80,
				Subtotal:    types.Zero(),
			},
		},
	}
	totals := sale.ComputeSaleTotals(s, types.MustMoney("50.00"))

	r := NewTextRenderer([]string{"FarmaPOS Central"}, []string{"Thank you"})
	out, err := r.Render(context.Background(), s, totals)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "FarmaPOS Central")
	assert.Contains(t, text, "Maria Lopez")
	assert.Contains(t, text, "Aspirin 500mg [box]")
	assert.Contains(t, text, "2 x 22.00")
	assert.Contains(t, text, "Vitamin C (points)")
	assert.Contains(t, text, "80 pts")
	assert.Contains(t, text, "44.00")
	assert.Contains(t, text, "deliver to counter 2")
	assert.Contains(t, text, "Thank you")
	assert.Contains(t, text, "2026-08-12 14:30")

	for _, line := range strings.Split(text, "\n") {
		assert.LessOrEqual(t, len(line), 42, "line too wide: %q", line)
	}
}

func TestNoopRendererProducesNothing(t *testing.T) {
	out, err := Noop{}.Render(context.Background(), &sale.Sale{}, sale.Totals{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
