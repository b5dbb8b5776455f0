package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
)

// memNotifications dedupes on unread (type, reference) like the SQL anti-join.
type memNotifications struct {
	Repository
	stored []*Notification
}

func (m *memNotifications) CreateUnlessUnread(ctx context.Context, n *Notification) (bool, error) {
	for _, existing := range m.stored {
		if !existing.Read && existing.Type == n.Type && existing.ReferenceID == n.ReferenceID {
			return false, nil
		}
	}
	m.stored = append(m.stored, n)
	return true, nil
}

// expiryProducts serves a canned expiring set.
type expiryProducts struct {
	product.Repository
	expiring []*product.Product
}

func (e *expiryProducts) FindExpiring(ctx context.Context, before time.Time) ([]*product.Product, error) {
	return e.expiring, nil
}

func testContext() context.Context {
	t := tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
	return tenant.WithTenant(context.Background(), t)
}

func TestNotifyLowStock_DeduplicatesWhileUnread(t *testing.T) {
	repo := &memNotifications{}
	svc := NewService(repo, &expiryProducts{})
	ctx := testContext()
	productID := id.New()

	svc.NotifyLowStock(ctx, productID, "Aspirin 500mg", 3, 5)
	svc.NotifyLowStock(ctx, productID, "Aspirin 500mg", 2, 5)

	require.Len(t, repo.stored, 1, "second alert for the same unread product is suppressed")
	assert.Equal(t, TypeLowStock, repo.stored[0].Type)
	assert.Equal(t, productID, repo.stored[0].ReferenceID)
}

func TestNotifyLowStock_NewAlertAfterRead(t *testing.T) {
	repo := &memNotifications{}
	svc := NewService(repo, &expiryProducts{})
	ctx := testContext()
	productID := id.New()

	svc.NotifyLowStock(ctx, productID, "Aspirin 500mg", 3, 5)
	repo.stored[0].Read = true

	svc.NotifyLowStock(ctx, productID, "Aspirin 500mg", 1, 5)
	assert.Len(t, repo.stored, 2, "a read alert no longer suppresses new ones")
}

func TestNotify_DroppedWithoutTenant(t *testing.T) {
	repo := &memNotifications{}
	svc := NewService(repo, &expiryProducts{})

	svc.NotifyLargeSale(context.Background(), id.New(), types.MustMoney("900.00"))
	assert.Empty(t, repo.stored)
}

func TestSweepExpirations_SplitsExpiredAndExpiring(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-48 * time.Hour)
	soon := now.Add(10 * 24 * time.Hour)

	tn := tenant.Tenant{SiteID: id.New(), CompanyID: id.New()}
	expired := product.New(tn, "Old syrup", types.MustMoney("4.00"))
	expired.ExpiresAt = &past
	expiring := product.New(tn, "Fresh syrup", types.MustMoney("4.00"))
	expiring.ExpiresAt = &soon
	noDate := product.New(tn, "Undated", types.MustMoney("1.00"))

	repo := &memNotifications{}
	svc := NewService(repo, &expiryProducts{expiring: []*product.Product{expired, expiring, noDate}})

	require.NoError(t, svc.SweepExpirations(tenant.WithTenant(context.Background(), tn)))

	require.Len(t, repo.stored, 2)
	byType := map[Type]id.ID{}
	for _, n := range repo.stored {
		byType[n.Type] = n.ReferenceID
	}
	assert.Equal(t, expired.ID, byType[TypeExpiredProduct])
	assert.Equal(t, expiring.ID, byType[TypeExpiringSoon])
}

func TestSweepExpirations_RequiresTenant(t *testing.T) {
	svc := NewService(&memNotifications{}, &expiryProducts{})
	assert.Error(t, svc.SweepExpirations(context.Background()))
}
