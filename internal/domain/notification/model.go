// Package notification stores operational alerts raised by the sales and
// inventory flows: low stock, expiring batches, large sales, new clients.
package notification

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
)

// Type classifies a notification for filtering and deduplication.
type Type string

const (
	TypeLowStock       Type = "low_stock"
	TypeExpiringSoon   Type = "expiring_soon"
	TypeExpiredProduct Type = "expired_product"
	TypeLargeSale      Type = "large_sale"
	TypeNewClient      Type = "new_client"
)

// Notification is one alert row. ReferenceID points at the entity the
// alert is about (product, sale or client), and together with Type forms
// the deduplication key while the alert stays unread.
type Notification struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	Type        Type   `db:"type" json:"type"`
	ReferenceID id.ID  `db:"reference_id" json:"referenceId"`
	Title       string `db:"title" json:"title"`
	Message     string `db:"message" json:"message"`

	Read      bool       `db:"read" json:"read"`
	ReadAt    *time.Time `db:"read_at" json:"readAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// New creates an unread notification scoped to the given tenant.
func New(t tenant.Tenant, typ Type, referenceID id.ID, title, message string) *Notification {
	return &Notification{
		ID:          id.New(),
		SiteID:      t.SiteID,
		CompanyID:   t.CompanyID,
		Type:        typ,
		ReferenceID: referenceID,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate implements invariant checks before persistence.
func (n *Notification) Validate(ctx context.Context) error {
	switch n.Type {
	case TypeLowStock, TypeExpiringSoon, TypeExpiredProduct, TypeLargeSale, TypeNewClient:
	default:
		return apperror.NewValidation("unknown notification type").
			WithDetail("type", string(n.Type))
	}
	if n.Title == "" {
		return apperror.NewValidation("title is required").
			WithDetail("field", "title")
	}
	return nil
}

// Repository defines tenant-scoped persistence for notifications.
type Repository interface {
	// CreateUnlessUnread inserts the notification unless an unread one with
	// the same (type, reference) already exists for the tenant. Returns
	// true when a row was inserted.
	CreateUnlessUnread(ctx context.Context, n *Notification) (bool, error)

	GetByID(ctx context.Context, notificationID id.ID) (*Notification, error)
	ListUnread(ctx context.Context, limit, offset int) ([]*Notification, error)
	List(ctx context.Context, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID id.ID) error
	MarkAllRead(ctx context.Context) error
}
