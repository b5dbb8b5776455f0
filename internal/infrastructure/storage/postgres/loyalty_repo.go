package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/loyalty"
)

// LoyaltyRepo is the PostgreSQL implementation of loyalty.Repository.
type LoyaltyRepo struct {
	txm *TxManager
}

var _ loyalty.Repository = (*LoyaltyRepo)(nil)

func NewLoyaltyRepo(txm *TxManager) *LoyaltyRepo {
	return &LoyaltyRepo{txm: txm}
}

const (
	promotionTable  = "loyalty_promotions"
	redeemableTable = "loyalty_redeemables"
	historyTable    = "loyalty_history"
)

var promotionColumns = []string{
	"id", "site_id", "company_id",
	"name", "multiplier", "active",
	"valid_from", "valid_to", "created_at",
}

var redeemableColumns = []string{
	"id", "site_id", "company_id",
	"promotion_id", "name", "points_cost",
	"stock", "status", "created_at",
}

var historyColumns = []string{
	"id", "site_id", "company_id",
	"sale_id", "redeemable_id", "client_id", "points",
	"created_at",
}

func (r *LoyaltyRepo) CreatePromotion(ctx context.Context, p *loyalty.Promotion) error {
	sql, args, err := Builder().
		Insert(promotionTable).
		SetMap(map[string]any{
			"id":         p.ID,
			"site_id":    p.SiteID,
			"company_id": p.CompanyID,
			"name":       p.Name,
			"multiplier": p.Multiplier,
			"active":     p.Active,
			"valid_from": p.ValidFrom,
			"valid_to":   p.ValidTo,
			"created_at": p.CreatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "promotion", p.ID)
	}
	return nil
}

func (r *LoyaltyRepo) UpdatePromotion(ctx context.Context, p *loyalty.Promotion) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(promotionTable).
		SetMap(map[string]any{
			"name":       p.Name,
			"multiplier": p.Multiplier,
			"active":     p.Active,
			"valid_from": p.ValidFrom,
			"valid_to":   p.ValidTo,
		}).
		Where(squirrel.Eq{"id": p.ID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "promotion", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("promotion", p.ID)
	}
	return nil
}

func (r *LoyaltyRepo) ListPromotions(ctx context.Context, limit, offset int) ([]*loyalty.Promotion, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(promotionColumns...).
		From(promotionTable).
		Where(tenantEq(t)).
		OrderBy("valid_from DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var promotions []*loyalty.Promotion
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &promotions, sql, args...); err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return promotions, nil
}

func (r *LoyaltyRepo) FindActivePromotion(ctx context.Context, at time.Time) (*loyalty.Promotion, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(promotionColumns...).
		From(promotionTable).
		Where(squirrel.Eq{"active": true}).
		Where(tenantEq(t)).
		Where(squirrel.LtOrEq{"valid_from": at}).
		Where(squirrel.GtOrEq{"valid_to": at}).
		OrderBy("valid_from DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p loyalty.Promotion
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, translateError(err, "promotion", at)
	}
	return &p, nil
}

func redeemableValues(rd *loyalty.Redeemable) map[string]any {
	return map[string]any{
		"id":           rd.ID,
		"site_id":      rd.SiteID,
		"company_id":   rd.CompanyID,
		"promotion_id": rd.PromotionID,
		"name":         rd.Name,
		"points_cost":  rd.PointsCost,
		"stock":        rd.Stock,
		"status":       rd.Status,
		"created_at":   rd.CreatedAt,
	}
}

func (r *LoyaltyRepo) CreateRedeemable(ctx context.Context, rd *loyalty.Redeemable) error {
	sql, args, err := Builder().
		Insert(redeemableTable).
		SetMap(redeemableValues(rd)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "redeemable", rd.ID)
	}
	return nil
}

func (r *LoyaltyRepo) GetRedeemable(ctx context.Context, redeemableID id.ID) (*loyalty.Redeemable, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(redeemableColumns...).
		From(redeemableTable).
		Where(squirrel.Eq{"id": redeemableID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rd loyalty.Redeemable
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &rd, sql, args...); err != nil {
		return nil, translateError(err, "redeemable", redeemableID)
	}
	return &rd, nil
}

func (r *LoyaltyRepo) UpdateRedeemable(ctx context.Context, rd *loyalty.Redeemable) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}

	values := redeemableValues(rd)
	delete(values, "id")
	delete(values, "site_id")
	delete(values, "company_id")
	delete(values, "created_at")

	sql, args, err := Builder().
		Update(redeemableTable).
		SetMap(values).
		Where(squirrel.Eq{"id": rd.ID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "redeemable", rd.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("redeemable", rd.ID)
	}
	return nil
}

func (r *LoyaltyRepo) ListRedeemables(ctx context.Context, availableOnly bool, limit, offset int) ([]*loyalty.Redeemable, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(redeemableColumns...).
		From(redeemableTable).
		Where(tenantEq(t)).
		OrderBy("points_cost ASC")

	if availableOnly {
		q = q.Where(squirrel.Eq{"status": loyalty.RedeemableAvailable})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var redeemables []*loyalty.Redeemable
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &redeemables, sql, args...); err != nil {
		return nil, fmt.Errorf("list redeemables: %w", err)
	}
	return redeemables, nil
}

// ConsumeRedeemable decrements stock and derives the status in a single
// conditional statement, mirroring how product stock is reserved.
func (r *LoyaltyRepo) ConsumeRedeemable(ctx context.Context, redeemableID id.ID) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(redeemableTable).
		Set("stock", squirrel.Expr("stock - 1")).
		Set("status", squirrel.Expr("CASE WHEN stock - 1 <= 0 THEN ? ELSE ? END",
			loyalty.RedeemableExhausted, loyalty.RedeemableAvailable)).
		Where(squirrel.Eq{"id": redeemableID}).
		Where(tenantEq(t)).
		Where(squirrel.Expr("stock >= 1")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "redeemable", redeemableID)
	}
	if tag.RowsAffected() == 0 {
		rd, getErr := r.GetRedeemable(ctx, redeemableID)
		if getErr != nil {
			return getErr
		}
		return apperror.NewInsufficientStock(redeemableID.String(), 1, int64(rd.Stock))
	}
	return nil
}

func (r *LoyaltyRepo) AppendHistory(ctx context.Context, entry *loyalty.HistoryEntry) error {
	sql, args, err := Builder().
		Insert(historyTable).
		SetMap(map[string]any{
			"id":            entry.ID,
			"site_id":       entry.SiteID,
			"company_id":    entry.CompanyID,
			"sale_id":       entry.SaleID,
			"redeemable_id": entry.RedeemableID,
			"client_id":     entry.ClientID,
			"points":        entry.Points,
			"created_at":    entry.CreatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "redemption history", entry.ID)
	}
	return nil
}

func (r *LoyaltyRepo) ListHistoryByClient(ctx context.Context, clientID id.ID, limit, offset int) ([]loyalty.HistoryEntry, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(historyColumns...).
		From(historyTable).
		Where(squirrel.Eq{"client_id": clientID}).
		Where(tenantEq(t)).
		OrderBy("created_at DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var entries []loyalty.HistoryEntry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list redemption history: %w", err)
	}
	return entries, nil
}
