package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
)

type stubProducts struct {
	product.Repository
	reserveErr error
}

func (s *stubProducts) ReserveStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	return s.reserveErr
}

func (s *stubProducts) ReleaseStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	return nil
}

func (s *stubProducts) AddUnitsSold(ctx context.Context, productID id.ID, qty types.Quantity) error {
	return nil
}

type spyCache struct {
	product.Cache
	invalidated []id.ID
}

func (c *spyCache) Invalidate(ctx context.Context, productID id.ID) error {
	c.invalidated = append(c.invalidated, productID)
	return nil
}

func (c *spyCache) Set(ctx context.Context, p *product.Product, ttl time.Duration) error {
	return nil
}

func TestInvalidatingRepo_DropsCacheOnStockWrites(t *testing.T) {
	ctx := context.Background()
	spy := &spyCache{}
	repo := NewInvalidatingRepo(&stubProducts{}, spy)
	productID := id.New()

	require.NoError(t, repo.ReserveStock(ctx, productID, 3))
	require.NoError(t, repo.ReleaseStock(ctx, productID, 1))
	require.NoError(t, repo.AddUnitsSold(ctx, productID, 2))

	require.Len(t, spy.invalidated, 3)
	for _, got := range spy.invalidated {
		assert.Equal(t, productID, got)
	}
}

func TestInvalidatingRepo_FailedWriteKeepsCache(t *testing.T) {
	spy := &spyCache{}
	failing := &stubProducts{reserveErr: apperror.NewInsufficientStock(id.New().String(), 5, 2)}
	repo := NewInvalidatingRepo(failing, spy)

	err := repo.ReserveStock(context.Background(), id.New(), 5)
	require.Error(t, err)
	assert.Empty(t, spy.invalidated)
}
