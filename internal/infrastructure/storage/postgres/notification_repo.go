package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/notification"
)

// NotificationRepo is the PostgreSQL implementation of notification.Repository.
type NotificationRepo struct {
	txm *TxManager
}

var _ notification.Repository = (*NotificationRepo)(nil)

func NewNotificationRepo(txm *TxManager) *NotificationRepo {
	return &NotificationRepo{txm: txm}
}

const notificationTable = "notifications"

var notificationColumns = []string{
	"id", "site_id", "company_id",
	"type", "reference_id", "title", "message",
	"read", "read_at", "created_at",
}

// CreateUnlessUnread inserts unless an unread alert with the same
// (type, reference) exists. The anti-join keeps dedup race-free without a
// partial unique index on the message text.
func (r *NotificationRepo) CreateUnlessUnread(ctx context.Context, n *notification.Notification) (bool, error) {
	sql := `
		INSERT INTO notifications (
			id, site_id, company_id, type, reference_id, title, message,
			read, read_at, created_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, false, NULL, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM notifications
			WHERE site_id = $2 AND company_id = $3
			  AND type = $4 AND reference_id = $5 AND read = false
		)
	`
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql,
		n.ID, n.SiteID, n.CompanyID, n.Type, n.ReferenceID, n.Title, n.Message,
		n.CreatedAt,
	)
	if err != nil {
		return false, translateError(err, "notification", n.ID)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, notificationID id.ID) (*notification.Notification, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := Builder().
		Select(notificationColumns...).
		From(notificationTable).
		Where(squirrel.Eq{"id": notificationID}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var n notification.Notification
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &n, sql, args...); err != nil {
		return nil, translateError(err, "notification", notificationID)
	}
	return &n, nil
}

func (r *NotificationRepo) ListUnread(ctx context.Context, limit, offset int) ([]*notification.Notification, error) {
	return r.list(ctx, true, limit, offset)
}

func (r *NotificationRepo) List(ctx context.Context, limit, offset int) ([]*notification.Notification, error) {
	return r.list(ctx, false, limit, offset)
}

func (r *NotificationRepo) list(ctx context.Context, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	t, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	q := Builder().
		Select(notificationColumns...).
		From(notificationTable).
		Where(tenantEq(t)).
		OrderBy("created_at DESC")

	if unreadOnly {
		q = q.Where(squirrel.Eq{"read": false})
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

	var notifications []*notification.Notification
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &notifications, sql, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID id.ID) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(notificationTable).
		Set("read", true).
		Set("read_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": notificationID, "read": false}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return translateError(err, "notification", notificationID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("notification", notificationID)
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context) error {
	t, err := requireTenant(ctx)
	if err != nil {
		return err
	}
	sql, args, err := Builder().
		Update(notificationTable).
		Set("read", true).
		Set("read_at", time.Now().UTC()).
		Where(squirrel.Eq{"read": false}).
		Where(tenantEq(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}
