package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/commission"
)

// CommissionRepo is the PostgreSQL implementation of commission.Repository.
type CommissionRepo struct {
	txm *TxManager
}

var _ commission.Repository = (*CommissionRepo)(nil)

func NewCommissionRepo(txm *TxManager) *CommissionRepo {
	return &CommissionRepo{txm: txm}
}

const (
	commissionRuleTable   = "commission_rules"
	commissionRecordTable = "commission_records"
)

var commissionRuleColumns = []string{
	"id", "site_id", "company_id",
	"product_id", "type", "value",
	"valid_from", "valid_to", "active", "condition",
	"created_at",
}

var commissionRecordColumns = []string{
	"id", "site_id", "company_id",
	"sale_id", "line_id", "rule_id", "user_id",
	"amount", "created_at",
}

func ruleValues(r *commission.Rule) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"site_id":    r.SiteID,
		"company_id": r.CompanyID,
		"product_id": r.ProductID,
		"type":       r.Type,
		"value":      r.Value,
		"valid_from": r.ValidFrom,
		"valid_to":   r.ValidTo,
		"active":     r.Active,
		"condition":  r.Condition,
		"created_at": r.CreatedAt,
	}
}

func (r *CommissionRepo) CreateRule(ctx context.Context, rule *commission.Rule) error {
	sql, args, err := Builder().
		Insert(commissionRuleTable).
		SetMap(ruleValues(rule)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "commission rule", rule.ID)
	}
	return nil
}

func (r *CommissionRepo) UpdateRule(ctx context.Context, rule *commission.Rule) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}

	values := ruleValues(rule)
	delete(values, "id")
	delete(values, "site_id")
	delete(values, "company_id")
	delete(values, "created_at")

	sql, args, err := Builder().
		Update(commissionRuleTable).
		SetMap(values).
		Where(squirrel.Eq{"id": rule.ID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "commission rule", rule.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("commission rule", rule.ID)
	}
	return nil
}

func (r *CommissionRepo) GetRule(ctx context.Context, ruleID id.ID) (*commission.Rule, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(commissionRuleColumns...).
		From(commissionRuleTable).
		Where(squirrel.Eq{"id": ruleID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rule commission.Rule
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &rule, sql, args...); err != nil {
		return nil, translateError(err, "commission rule", ruleID)
	}
	return &rule, nil
}

func (r *CommissionRepo) ListRules(ctx context.Context, activeOnly bool, limit, offset int) ([]*commission.Rule, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(commissionRuleColumns...).
		From(commissionRuleTable).
		Where(tenantEq(t)).
		OrderBy("created_at DESC")

	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
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

	var rules []*commission.Rule
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rules, sql, args...); err != nil {
		return nil, fmt.Errorf("list commission rules: %w", err)
	}
	return rules, nil
}

func (r *CommissionRepo) FindRuleForProduct(ctx context.Context, productID id.ID, at time.Time) (*commission.Rule, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(commissionRuleColumns...).
		From(commissionRuleTable).
		Where(squirrel.Eq{"product_id": productID, "active": true}).
		Where(tenantEq(t)).
		Where(squirrel.LtOrEq{"valid_from": at}).
		Where(squirrel.GtOrEq{"valid_to": at}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rule commission.Rule
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &rule, sql, args...); err != nil {
		return nil, translateError(err, "commission rule", productID)
	}
	return &rule, nil
}

func (r *CommissionRepo) CreateRecords(ctx context.Context, records []commission.Record) error {
	if len(records) == 0 {
		return nil
	}

	q := Builder().
		Insert(commissionRecordTable).
		Columns(commissionRecordColumns...)
	for _, rec := range records {
		q = q.Values(
			rec.ID, rec.SiteID, rec.CompanyID,
			rec.SaleID, rec.LineID, rec.RuleID, rec.UserID,
			rec.Amount, rec.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert commission records: %w", err)
	}
	return nil
}

func (r *CommissionRepo) ListRecordsByUser(ctx context.Context, userID id.ID, limit, offset int) ([]commission.Record, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(commissionRecordColumns...).
		From(commissionRecordTable).
		Where(squirrel.Eq{"user_id": userID}).
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

	var records []commission.Record
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, fmt.Errorf("list commission records: %w", err)
	}
	return records, nil
}

func (r *CommissionRepo) ListRecordsBySale(ctx context.Context, saleID id.ID) ([]commission.Record, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(commissionRecordColumns...).
		From(commissionRecordTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		Where(tenantEq(t)).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var records []commission.Record
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, fmt.Errorf("list commission records: %w", err)
	}
	return records, nil
}
