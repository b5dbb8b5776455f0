package notification

import (
	"context"
	"fmt"
	"time"

	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/product"
	"farmapos/internal/domain/sale"
	"farmapos/pkg/logger"
)

// ExpiryWindow is how far ahead the sweep looks for expiring products.
const ExpiryWindow = 30 * 24 * time.Hour

// Service raises and manages operational notifications. The Notify*
// methods are fire-and-forget: a storage failure is logged, never
// propagated to the calling flow.
type Service struct {
	repo     Repository
	products product.Repository
}

func NewService(repo Repository, products product.Repository) *Service {
	return &Service{repo: repo, products: products}
}

var (
	_ sale.Notifier   = (*Service)(nil)
	_ client.Notifier = (*Service)(nil)
)

// NotifyLowStock implements sale.Notifier.
func (s *Service) NotifyLowStock(ctx context.Context, productID id.ID, name string, stock, minStock types.Quantity) {
	s.raise(ctx, TypeLowStock, productID,
		"Low stock",
		fmt.Sprintf("%s is down to %d units (minimum %d)", name, stock, minStock),
	)
}

// NotifyLargeSale implements sale.Notifier.
func (s *Service) NotifyLargeSale(ctx context.Context, saleID id.ID, amount types.Money) {
	s.raise(ctx, TypeLargeSale, saleID,
		"Large sale",
		fmt.Sprintf("sale closed for %s", amount.StringFixed(2)),
	)
}

// NotifyNewClient implements client.Notifier.
func (s *Service) NotifyNewClient(ctx context.Context, clientID id.ID, name string) {
	s.raise(ctx, TypeNewClient, clientID,
		"New client",
		fmt.Sprintf("%s was registered", name),
	)
}

func (s *Service) raise(ctx context.Context, typ Type, referenceID id.ID, title, message string) {
	t, err := tenant.Require(ctx)
	if err != nil {
		logger.Warn(ctx, "notification dropped: no tenant", "type", string(typ))
		return
	}
	n := New(t, typ, referenceID, title, message)
	inserted, err := s.repo.CreateUnlessUnread(ctx, n)
	if err != nil {
		logger.Error(ctx, "failed to store notification",
			"type", string(typ),
			"reference_id", referenceID.String(),
			"error", err,
		)
		return
	}
	if !inserted {
		logger.Debug(ctx, "notification suppressed, unread duplicate exists",
			"type", string(typ),
			"reference_id", referenceID.String(),
		)
	}
}

// SweepExpirations raises alerts for products already expired and for
// products expiring within ExpiryWindow. Meant to run periodically.
func (s *Service) SweepExpirations(ctx context.Context) error {
	if _, err := tenant.Require(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	expiring, err := s.products.FindExpiring(ctx, now.Add(ExpiryWindow))
	if err != nil {
		return err
	}
	for _, p := range expiring {
		if p.ExpiresAt == nil {
			continue
		}
		if p.ExpiresAt.Before(now) {
			s.raise(ctx, TypeExpiredProduct, p.ID,
				"Expired product",
				fmt.Sprintf("%s expired on %s", p.Name, p.ExpiresAt.Format("2006-01-02")),
			)
			continue
		}
		s.raise(ctx, TypeExpiringSoon, p.ID,
			"Product expiring soon",
			fmt.Sprintf("%s expires on %s", p.Name, p.ExpiresAt.Format("2006-01-02")),
		)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, notificationID id.ID) (*Notification, error) {
	return s.repo.GetByID(ctx, notificationID)
}

func (s *Service) ListUnread(ctx context.Context, limit, offset int) ([]*Notification, error) {
	return s.repo.ListUnread(ctx, limit, offset)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Notification, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, notificationID id.ID) error {
	return s.repo.MarkRead(ctx, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.repo.MarkAllRead(ctx)
}
