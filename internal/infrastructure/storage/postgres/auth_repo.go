package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/auth"
)

// UserRepo is the PostgreSQL implementation of auth.UserRepository.
type UserRepo struct {
	txm *TxManager
}

var _ auth.UserRepository = (*UserRepo)(nil)

func NewUserRepo(txm *TxManager) *UserRepo {
	return &UserRepo{txm: txm}
}

const userTable = "users"

var userColumns = []string{
	"id", "site_id", "company_id",
	"email", "password_hash", "name", "role",
	"is_active", "failed_login_attempts", "locked_until", "last_login_at",
	"created_at", "updated_at",
}

func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	sql, args, err := Builder().
		Insert(userTable).
		SetMap(map[string]any{
			"id":                    user.ID,
			"site_id":               user.SiteID,
			"company_id":            user.CompanyID,
			"email":                 user.Email,
			"password_hash":         user.PasswordHash,
			"name":                  user.Name,
			"role":                  user.Role,
			"is_active":             user.IsActive,
			"failed_login_attempts": user.FailedLoginAttempts,
			"locked_until":          user.LockedUntil,
			"last_login_at":         user.LastLoginAt,
			"created_at":            user.CreatedAt,
			"updated_at":            user.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "user", user.ID)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	sql, args, err := Builder().
		Select(userColumns...).
		From(userTable).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var user auth.User
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &user, sql, args...); err != nil {
		return nil, translateError(err, "user", userID)
	}
	return &user, nil
}

// GetByEmail looks up across tenants: login happens before a tenant
// context exists, the token then carries the site and company.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	sql, args, err := Builder().
		Select(userColumns...).
		From(userTable).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var user auth.User
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &user, sql, args...); err != nil {
		return nil, translateError(err, "user", email)
	}
	return &user, nil
}

func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	sql, args, err := Builder().
		Update(userTable).
		SetMap(map[string]any{
			"email":                 user.Email,
			"password_hash":         user.PasswordHash,
			"name":                  user.Name,
			"role":                  user.Role,
			"is_active":             user.IsActive,
			"failed_login_attempts": user.FailedLoginAttempts,
			"locked_until":          user.LockedUntil,
			"last_login_at":         user.LastLoginAt,
			"updated_at":            time.Now().UTC(),
		}).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "user", user.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID)
	}
	return nil
}

func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	sql, args, err := Builder().
		Select("1").
		From(userTable).
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &one, sql, args...)
	if err != nil {
		if apperror.IsNotFound(translateError(err, "user", email)) {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return true, nil
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*auth.User, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(userColumns...).
		From(userTable).
		Where(tenantEq(t)).
		OrderBy("name ASC")

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

	var users []*auth.User
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &users, sql, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
