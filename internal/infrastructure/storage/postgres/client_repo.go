package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/client"
)

// ClientRepo is the PostgreSQL implementation of client.Repository.
type ClientRepo struct {
	txm *TxManager
}

var _ client.Repository = (*ClientRepo)(nil)

func NewClientRepo(txm *TxManager) *ClientRepo {
	return &ClientRepo{txm: txm}
}

const clientTable = "clients"

var clientColumns = []string{
	"id", "site_id", "company_id",
	"name", "document", "phone", "points",
	"version", "created_at", "updated_at",
}

func (r *ClientRepo) Create(ctx context.Context, c *client.Client) error {
	sql, args, err := Builder().
		Insert(clientTable).
		SetMap(map[string]any{
			"id":         c.ID,
			"site_id":    c.SiteID,
			"company_id": c.CompanyID,
			"name":       c.Name,
			"document":   c.Document,
			"phone":      c.Phone,
			"points":     c.Points,
			"version":    c.Version,
			"created_at": c.CreatedAt,
			"updated_at": c.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return translateError(err, "client", c.ID)
	}
	return nil
}

func (r *ClientRepo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(clientColumns...).
		From(clientTable).
		Where(squirrel.Eq{"id": clientID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var c client.Client
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		return nil, translateError(err, "client", clientID)
	}
	return &c, nil
}

func (r *ClientRepo) GetByName(ctx context.Context, name string) (*client.Client, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(clientColumns...).
		From(clientTable).
		Where(squirrel.Eq{"name": name}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var c client.Client
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		return nil, translateError(err, "client", name)
	}
	return &c, nil
}

func (r *ClientRepo) Update(ctx context.Context, c *client.Client) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(clientTable).
		SetMap(map[string]any{
			"name":       c.Name,
			"document":   c.Document,
			"phone":      c.Phone,
			"version":    c.Version + 1,
			"updated_at": time.Now().UTC(),
		}).
		Where(squirrel.Eq{"id": c.ID, "version": c.Version}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "client", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("client", c.ID)
	}
	c.Version++
	return nil
}

func (r *ClientRepo) List(ctx context.Context, search string, limit, offset int) ([]*client.Client, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(clientColumns...).
		From(clientTable).
		Where(tenantEq(t)).
		OrderBy("name ASC")

	if search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + search + "%"})
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

	var clients []*client.Client
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &clients, sql, args...); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// AddPoints applies the earn/redeem delta in one conditional statement: the
// row only updates when the resulting balance stays non-negative, so two
// registers racing the cart-time balance check cannot overdraw the client.
func (r *ClientRepo) AddPoints(ctx context.Context, clientID id.ID, delta int64) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(clientTable).
		Set("points", squirrel.Expr("points + ?", delta)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": clientID}).
		Where(tenantEq(t)).
		Where(squirrel.Expr("points + ? >= 0", delta)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "client", clientID)
	}
	if tag.RowsAffected() == 0 {
		// Zero rows is either a missing client or a balance that cannot
		// cover the delta. Reread to tell them apart.
		c, err := r.GetByID(ctx, clientID)
		if err != nil {
			return err
		}
		return apperror.NewInsufficientPoints(clientID.String(), -delta, c.Points)
	}
	return nil
}
