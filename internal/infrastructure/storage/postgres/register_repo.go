package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/register"
)

// RegisterRepo is the PostgreSQL implementation of register.Repository.
type RegisterRepo struct {
	txm *TxManager
}

var _ register.Repository = (*RegisterRepo)(nil)

func NewRegisterRepo(txm *TxManager) *RegisterRepo {
	return &RegisterRepo{txm: txm}
}

const registerTable = "register_sessions"

var registerColumns = []string{
	"id", "site_id", "company_id", "user_id", "status",
	"opening_float",
	"system_cash", "system_mobile_wallet", "system_bank_transfer", "system_other",
	"counted_cash", "surplus", "shortfall",
	"opened_at", "closed_at",
}

func registerValues(s *register.Session) map[string]any {
	return map[string]any{
		"id":                   s.ID,
		"site_id":              s.SiteID,
		"company_id":           s.CompanyID,
		"user_id":              s.UserID,
		"status":               s.Status,
		"opening_float":        s.OpeningFloat,
		"system_cash":          s.SystemCash,
		"system_mobile_wallet": s.SystemMobileWallet,
		"system_bank_transfer": s.SystemBankTransfer,
		"system_other":         s.SystemOther,
		"counted_cash":         s.CountedCash,
		"surplus":              s.Surplus,
		"shortfall":            s.Shortfall,
		"opened_at":            s.OpenedAt,
		"closed_at":            s.ClosedAt,
	}
}

func (r *RegisterRepo) Create(ctx context.Context, s *register.Session) error {
	sql, args, err := Builder().
		Insert(registerTable).
		SetMap(registerValues(s)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "register session", s.ID)
	}
	return nil
}

func (r *RegisterRepo) GetByID(ctx context.Context, sessionID id.ID) (*register.Session, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(registerColumns...).
		From(registerTable).
		Where(squirrel.Eq{"id": sessionID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s register.Session
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		return nil, translateError(err, "register session", sessionID)
	}
	return &s, nil
}

func (r *RegisterRepo) Update(ctx context.Context, s *register.Session) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}

	values := registerValues(s)
	delete(values, "id")
	delete(values, "site_id")
	delete(values, "company_id")
	delete(values, "opened_at")

	sql, args, err := Builder().
		Update(registerTable).
		SetMap(values).
		Where(squirrel.Eq{"id": s.ID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "register session", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("register session", s.ID)
	}
	return nil
}

func (r *RegisterRepo) GetOpenByUser(ctx context.Context, userID id.ID) (*register.Session, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(registerColumns...).
		From(registerTable).
		Where(squirrel.Eq{"user_id": userID, "status": register.StatusOpen}).
		Where(tenantEq(t)).
		OrderBy("opened_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s register.Session
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		return nil, translateError(err, "register session", userID)
	}
	return &s, nil
}

func (r *RegisterRepo) List(ctx context.Context, userID *id.ID, limit, offset int) ([]*register.Session, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(registerColumns...).
		From(registerTable).
		Where(tenantEq(t)).
		OrderBy("opened_at DESC")

	if userID != nil {
		q = q.Where(squirrel.Eq{"user_id": *userID})
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

	var sessions []*register.Session
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &sessions, sql, args...); err != nil {
		return nil, fmt.Errorf("list register sessions: %w", err)
	}
	return sessions, nil
}
