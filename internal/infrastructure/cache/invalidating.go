package cache

import (
	"context"

	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
	"farmapos/pkg/logger"
)

// InvalidatingRepo wraps a product repository and drops the cached copy on
// every write. The cart engine mutates stock through the repository, so
// without this a cached product could serve stale stock for the full TTL
// after a sale.
type InvalidatingRepo struct {
	product.Repository
	cache product.Cache
}

var _ product.Repository = (*InvalidatingRepo)(nil)

// NewInvalidatingRepo decorates repo with cache invalidation on writes.
func NewInvalidatingRepo(repo product.Repository, c product.Cache) *InvalidatingRepo {
	return &InvalidatingRepo{Repository: repo, cache: c}
}

func (r *InvalidatingRepo) Update(ctx context.Context, p *product.Product) error {
	if err := r.Repository.Update(ctx, p); err != nil {
		return err
	}
	r.drop(ctx, p.ID)
	return nil
}

func (r *InvalidatingRepo) Delete(ctx context.Context, productID id.ID) error {
	if err := r.Repository.Delete(ctx, productID); err != nil {
		return err
	}
	r.drop(ctx, productID)
	return nil
}

func (r *InvalidatingRepo) ReserveStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	if err := r.Repository.ReserveStock(ctx, productID, qty); err != nil {
		return err
	}
	r.drop(ctx, productID)
	return nil
}

func (r *InvalidatingRepo) ReleaseStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	if err := r.Repository.ReleaseStock(ctx, productID, qty); err != nil {
		return err
	}
	r.drop(ctx, productID)
	return nil
}

func (r *InvalidatingRepo) AddUnitsSold(ctx context.Context, productID id.ID, qty types.Quantity) error {
	if err := r.Repository.AddUnitsSold(ctx, productID, qty); err != nil {
		return err
	}
	r.drop(ctx, productID)
	return nil
}

func (r *InvalidatingRepo) drop(ctx context.Context, productID id.ID) {
	if err := r.cache.Invalidate(ctx, productID); err != nil {
		logger.Warn(ctx, "product cache invalidate failed", "id", productID, "error", err)
	}
}
