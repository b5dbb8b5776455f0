package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/events"
	"farmapos/internal/domain/product"
	"farmapos/internal/domain/sale"
)

type snapshotSales struct {
	sale.Repository
	sale  *sale.Sale
	lines []sale.Line
}

func (f *snapshotSales) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	cp := *f.sale
	return &cp, nil
}

func (f *snapshotSales) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	return f.lines, nil
}

type capturedChange struct {
	entityType string
	entityID   id.ID
	action     AuditAction
	changes    any
}

type captureLogger struct {
	entries []capturedChange
}

func (c *captureLogger) LogChange(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes any) error {
	c.entries = append(c.entries, capturedChange{entityType, entityID, action, changes})
	return nil
}

func TestSaleAuditSubscriber_SnapshotsFullSale(t *testing.T) {
	now := time.Now().UTC()
	s := &sale.Sale{
		ID:            id.New(),
		Status:        sale.StatusCompleted,
		PaymentMethod: sale.PayCash,
		AmountDue:     types.MustMoney("44.00"),
		CompletedAt:   &now,
	}
	lines := []sale.Line{
		{ID: id.New(), Kind: sale.KindNormal, ProductName: "Aspirin 500mg", Unit: product.UnitBox, Quantity: 2},
		{ID: id.New(), Kind: sale.KindRedeemed, ProductName: "Vitamin C", PointsCost: 80, Quantity: 1},
	}
	audit := &captureLogger{}
	handler := NewSaleAuditSubscriber(&snapshotSales{sale: s, lines: lines}, audit)

	handler(context.Background(), events.SaleCompleted{
		SaleID:      s.ID,
		AmountDue:   s.AmountDue,
		CompletedAt: now,
	})

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "sale", entry.entityType)
	assert.Equal(t, s.ID, entry.entityID)
	assert.Equal(t, AuditActionComplete, entry.action)

	snapshot, ok := entry.changes.(*sale.Sale)
	require.True(t, ok, "changes payload: %T", entry.changes)
	require.Len(t, snapshot.Lines, 2)
	assert.Equal(t, "Aspirin 500mg", snapshot.Lines[0].ProductName)
	assert.Equal(t, int64(80), snapshot.Lines[1].PointsCost)
}
