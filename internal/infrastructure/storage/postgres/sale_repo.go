package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/sale"
)

// SaleRepo is the PostgreSQL implementation of sale.Repository.
// Headers and lines live in separate tables; GetByID loads both.
type SaleRepo struct {
	txm *TxManager
}

var _ sale.Repository = (*SaleRepo)(nil)

func NewSaleRepo(txm *TxManager) *SaleRepo {
	return &SaleRepo{txm: txm}
}

const (
	saleTable     = "sales"
	saleLineTable = "sale_lines"
)

var saleColumns = []string{
	"id", "site_id", "company_id", "user_id",
	"status", "client_id", "client_name", "payment_method",
	"discount_percent", "discount_amount",
	"subtotal", "tax", "amount_due", "note",
	"created_at", "updated_at", "completed_at",
}

var saleLineColumns = []string{
	"id", "sale_id", "kind",
	"product_id", "product_name", "unit", "quantity", "factor",
	"unit_price", "subtotal",
	"redeemable_id", "points_cost",
	"created_at",
}

func saleValues(s *sale.Sale) map[string]any {
	return map[string]any{
		"id":               s.ID,
		"site_id":          s.SiteID,
		"company_id":       s.CompanyID,
		"user_id":          s.UserID,
		"status":           s.Status,
		"client_id":        s.ClientID,
		"client_name":      s.ClientName,
		"payment_method":   s.PaymentMethod,
		"discount_percent": s.DiscountPercent,
		"discount_amount":  s.DiscountAmount,
		"subtotal":         s.Subtotal,
		"tax":              s.Tax,
		"amount_due":       s.AmountDue,
		"note":             s.Note,
		"created_at":       s.CreatedAt,
		"updated_at":       s.UpdatedAt,
		"completed_at":     s.CompletedAt,
	}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	sql, args, err := Builder().
		Insert(saleTable).
		SetMap(saleValues(s)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "sale", s.ID)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(saleColumns...).
		From(saleTable).
		Where(squirrel.Eq{"id": saleID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		return nil, translateError(err, "sale", saleID)
	}
	if s.Lines, err = r.GetLines(ctx, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}

	values := saleValues(s)
	delete(values, "id")
	delete(values, "site_id")
	delete(values, "company_id")
	delete(values, "created_at")

	sql, args, err := Builder().
		Update(saleTable).
		SetMap(values).
		Where(squirrel.Eq{"id": s.ID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "sale", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", s.ID)
	}
	return nil
}

func (r *SaleRepo) GetPendingByUser(ctx context.Context, userID id.ID) (*sale.Sale, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(saleColumns...).
		From(saleTable).
		Where(squirrel.Eq{"user_id": userID, "status": sale.StatusPending}).
		Where(tenantEq(t)).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		return nil, translateError(err, "sale", userID)
	}
	if s.Lines, err = r.GetLines(ctx, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	sql, args, err := Builder().
		Select(saleLineColumns...).
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	return lines, nil
}

func (r *SaleRepo) InsertLine(ctx context.Context, line *sale.Line) error {
	sql, args, err := Builder().
		Insert(saleLineTable).
		SetMap(map[string]any{
			"id":            line.ID,
			"sale_id":       line.SaleID,
			"kind":          line.Kind,
			"product_id":    line.ProductID,
			"product_name":  line.ProductName,
			"unit":          line.Unit,
			"quantity":      line.Quantity,
			"factor":        line.Factor,
			"unit_price":    line.UnitPrice,
			"subtotal":      line.Subtotal,
			"redeemable_id": line.RedeemableID,
			"points_cost":   line.PointsCost,
			"created_at":    line.CreatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "sale line", line.ID)
	}
	return nil
}

func (r *SaleRepo) UpdateLine(ctx context.Context, line *sale.Line) error {
	sql, args, err := Builder().
		Update(saleLineTable).
		SetMap(map[string]any{
			"unit":       line.Unit,
			"quantity":   line.Quantity,
			"factor":     line.Factor,
			"unit_price": line.UnitPrice,
			"subtotal":   line.Subtotal,
		}).
		Where(squirrel.Eq{"id": line.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "sale line", line.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale line", line.ID)
	}
	return nil
}

func (r *SaleRepo) DeleteLine(ctx context.Context, lineID id.ID) error {
	sql, args, err := Builder().
		Delete(saleLineTable).
		Where(squirrel.Eq{"id": lineID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "sale line", lineID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale line", lineID)
	}
	return nil
}

func (r *SaleRepo) DeleteLines(ctx context.Context, saleID id.ID) error {
	sql, args, err := Builder().
		Delete(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "sale line", saleID)
	}
	return nil
}

func (r *SaleRepo) ListCompletedSince(ctx context.Context, userID id.ID, since time.Time) ([]*sale.Sale, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(saleColumns...).
		From(saleTable).
		Where(squirrel.Eq{"user_id": userID, "status": sale.StatusCompleted}).
		Where(tenantEq(t)).
		Where(squirrel.GtOrEq{"completed_at": since}).
		OrderBy("completed_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var sales []*sale.Sale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &sales, sql, args...); err != nil {
		return nil, fmt.Errorf("list completed sales: %w", err)
	}
	return sales, nil
}
