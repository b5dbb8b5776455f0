package product

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/pkg/logger"
)

// Cache is an optional read cache for hot catalog lookups.
// A nil-safe noop implementation is used when Redis is not configured.
type Cache interface {
	Get(ctx context.Context, productID id.ID) (*Product, bool, error)
	Set(ctx context.Context, p *Product, ttl time.Duration) error
	Invalidate(ctx context.Context, productID id.ID) error
}

// Service provides catalog operations. Stock mutations are not exposed here:
// they belong to the cart engine and run inside its transactions.
type Service struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
}

// NewService creates a new catalog service.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: 5 * time.Minute,
	}
}

// Create validates and inserts a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if p.Barcode != "" {
		if existing, err := s.repo.GetByBarcode(ctx, p.Barcode); err == nil && existing.ID != p.ID {
			return apperror.NewDuplicate("product", "barcode", p.Barcode)
		}
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	logger.Info(ctx, "product created", "id", p.ID, "name", p.Name)
	return nil
}

// GetByID retrieves a product, serving from cache when possible.
// Cache misses and cache errors both fall through to the repository.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	if s.cache != nil {
		if p, ok, err := s.cache.Get(ctx, productID); err == nil && ok {
			return p, nil
		}
	}
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p, s.cacheTTL); err != nil {
			logger.Warn(ctx, "product cache set failed", "id", productID, "error", err)
		}
	}
	return p, nil
}

// GetByBarcode resolves a scanned barcode to a product.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	return s.repo.GetByBarcode(ctx, barcode)
}

// Update validates and persists product changes, dropping the cached copy.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	p.Touch()
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx, p.ID)
	return nil
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		return err
	}
	s.invalidate(ctx, productID)
	return nil
}

// List retrieves products with filtering and pagination.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// FindLowStock returns products at or below their minimum threshold.
func (s *Service) FindLowStock(ctx context.Context) ([]*Product, error) {
	return s.repo.FindLowStock(ctx)
}

// FindExpiring returns products whose expiration date falls within the window.
func (s *Service) FindExpiring(ctx context.Context, within time.Duration) ([]*Product, error) {
	return s.repo.FindExpiring(ctx, time.Now().UTC().Add(within))
}

func (s *Service) invalidate(ctx context.Context, productID id.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		logger.Warn(ctx, "product cache invalidate failed", "id", productID, "error", err)
	}
}
