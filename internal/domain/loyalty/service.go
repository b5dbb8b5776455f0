package loyalty

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/sale"
	"farmapos/pkg/logger"

	"github.com/shopspring/decimal"
)

// Service manages the promotion and redeemable catalogs.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePromotion(ctx context.Context, p *Promotion) error {
	t, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	p.SiteID = t.SiteID
	p.CompanyID = t.CompanyID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreatePromotion(ctx, p)
}

func (s *Service) UpdatePromotion(ctx context.Context, p *Promotion) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.UpdatePromotion(ctx, p)
}

func (s *Service) ListPromotions(ctx context.Context, limit, offset int) ([]*Promotion, error) {
	return s.repo.ListPromotions(ctx, limit, offset)
}

func (s *Service) CreateRedeemable(ctx context.Context, r *Redeemable) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreateRedeemable(ctx, r)
}

func (s *Service) GetRedeemable(ctx context.Context, redeemableID id.ID) (*Redeemable, error) {
	return s.repo.GetRedeemable(ctx, redeemableID)
}

func (s *Service) UpdateRedeemable(ctx context.Context, r *Redeemable) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}
	if r.Stock > 0 {
		r.Status = RedeemableAvailable
	} else {
		r.Status = RedeemableExhausted
	}
	return s.repo.UpdateRedeemable(ctx, r)
}

func (s *Service) ListRedeemables(ctx context.Context, availableOnly bool, limit, offset int) ([]*Redeemable, error) {
	return s.repo.ListRedeemables(ctx, availableOnly, limit, offset)
}

func (s *Service) ListHistoryByClient(ctx context.Context, clientID id.ID, limit, offset int) ([]HistoryEntry, error) {
	return s.repo.ListHistoryByClient(ctx, clientID, limit, offset)
}

// ActiveMultiplier returns the points multiplier in effect at the given
// time. Defaults to 1 when no promotion applies.
func (s *Service) ActiveMultiplier(ctx context.Context, at time.Time) (types.Money, error) {
	p, err := s.repo.FindActivePromotion(ctx, at)
	if err != nil {
		if apperror.IsNotFound(err) {
			return decimal.NewFromInt(1), nil
		}
		return types.Zero(), err
	}
	return p.Multiplier, nil
}

// Settler applies the earn/redeem side of a completed sale: points earned
// from the amount due, points spent on redeemed lines, the client balance
// adjusted once, and redemption history appended. It runs inside the
// finalize transaction, so a failure here aborts the sale.
type Settler struct {
	repo    Repository
	clients client.Repository
	catalog *Service
}

func NewSettler(repo Repository, clients client.Repository) *Settler {
	return &Settler{repo: repo, clients: clients, catalog: NewService(repo)}
}

var _ sale.PointsSettler = (*Settler)(nil)

// Settle implements sale.PointsSettler.
func (s *Settler) Settle(ctx context.Context, sl *sale.Sale) (earned, redeemed int64, err error) {
	if sl.ClientID == nil {
		return 0, 0, nil
	}
	clientID := *sl.ClientID

	now := time.Now().UTC()
	mult, err := s.catalog.ActiveMultiplier(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	earned = sl.AmountDue.Mul(mult).Floor().IntPart()
	redeemed = sl.RedeemedPoints()

	if delta := earned - redeemed; delta != 0 {
		if err := s.clients.AddPoints(ctx, clientID, delta); err != nil {
			return 0, 0, err
		}
	}

	t, err := tenant.Require(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, line := range sl.Lines {
		if line.Kind != sale.KindRedeemed || id.IsNil(line.RedeemableID) {
			continue
		}
		if err := s.repo.ConsumeRedeemable(ctx, line.RedeemableID); err != nil {
			return 0, 0, err
		}
		entry := &HistoryEntry{
			ID:           id.New(),
			SiteID:       t.SiteID,
			CompanyID:    t.CompanyID,
			SaleID:       sl.ID,
			RedeemableID: line.RedeemableID,
			ClientID:     clientID,
			Points:       line.PointsCost,
			CreatedAt:    now,
		}
		if err := s.repo.AppendHistory(ctx, entry); err != nil {
			return 0, 0, err
		}
	}

	logger.Debug(ctx, "loyalty settled",
		"sale_id", sl.ID.String(),
		"client_id", clientID.String(),
		"earned", earned,
		"redeemed", redeemed,
	)
	return earned, redeemed, nil
}
