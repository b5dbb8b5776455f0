package commission

import (
	"context"

	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
)

// Service manages commission rules and exposes earned records.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateRule(ctx context.Context, r *Rule) error {
	t, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if id.IsNil(r.ID) {
		r.ID = id.New()
	}
	r.SiteID = t.SiteID
	r.CompanyID = t.CompanyID
	if err := r.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreateRule(ctx, r)
}

func (s *Service) UpdateRule(ctx context.Context, r *Rule) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}
	return s.repo.UpdateRule(ctx, r)
}

func (s *Service) GetRule(ctx context.Context, ruleID id.ID) (*Rule, error) {
	return s.repo.GetRule(ctx, ruleID)
}

func (s *Service) ListRules(ctx context.Context, activeOnly bool, limit, offset int) ([]*Rule, error) {
	return s.repo.ListRules(ctx, activeOnly, limit, offset)
}

func (s *Service) ListRecordsByUser(ctx context.Context, userID id.ID, limit, offset int) ([]Record, error) {
	return s.repo.ListRecordsByUser(ctx, userID, limit, offset)
}

func (s *Service) ListRecordsBySale(ctx context.Context, saleID id.ID) ([]Record, error) {
	return s.repo.ListRecordsBySale(ctx, saleID)
}
