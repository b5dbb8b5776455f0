// Package client provides the client catalog and loyalty points balance.
package client

import (
	"context"
	"time"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/core/tenant"
)

// WalkIn is the display name stored on sales with no client attached.
const WalkIn = "Público General"

// Client is a registered customer with a loyalty points balance.
// The balance is only ever mutated together with a sale completion.
type Client struct {
	ID        id.ID `db:"id" json:"id"`
	SiteID    id.ID `db:"site_id" json:"siteId"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	Name     string `db:"name" json:"name"`
	Document string `db:"document" json:"document,omitempty"`
	Phone    string `db:"phone" json:"phone,omitempty"`

	// Points is the loyalty balance. Earn and redeem are applied in one
	// update at sale completion.
	Points int64 `db:"points" json:"points"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a client scoped to the given tenant.
func New(t tenant.Tenant, name string) *Client {
	now := time.Now().UTC()
	return &Client{
		ID:        id.New(),
		SiteID:    t.SiteID,
		CompanyID: t.CompanyID,
		Name:      name,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements invariant checks before persistence.
func (c *Client) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if c.Points < 0 {
		return apperror.NewValidation("points cannot be negative").
			WithDetail("field", "points")
	}
	return nil
}

// Repository defines tenant-scoped persistence for clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, clientID id.ID) (*Client, error)
	GetByName(ctx context.Context, name string) (*Client, error)
	Update(ctx context.Context, c *Client) error
	List(ctx context.Context, search string, limit, offset int) ([]*Client, error)

	// AddPoints applies a signed delta to the balance in a single statement.
	// Called only from the sale finalization transaction.
	AddPoints(ctx context.Context, clientID id.ID, delta int64) error
}
