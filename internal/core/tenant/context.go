// Package tenant carries the (site, company) pair that scopes every read and
// write in the system. The pair is resolved per request and passed explicitly
// through context, never held in a global.
package tenant

import (
	"context"
	"errors"

	"farmapos/internal/core/id"
)

// Tenant identifies the data scope: one company operating one site.
// All repository queries filter by both columns.
type Tenant struct {
	SiteID    id.ID
	CompanyID id.ID
}

// IsZero reports whether either half of the pair is unset.
func (t Tenant) IsZero() bool {
	return id.IsNil(t.SiteID) || id.IsNil(t.CompanyID)
}

type tenantKey struct{}

// ErrNoTenant is returned when an operation runs without a resolved tenant.
var ErrNoTenant = errors.New("tenant not found in context")

// WithTenant stores tenant info in context.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// Get retrieves the tenant from context; the zero value if absent.
func Get(ctx context.Context) Tenant {
	t, _ := ctx.Value(tenantKey{}).(Tenant)
	return t
}

// Require retrieves the tenant from context, failing on an unset pair.
// Core operations call this before touching any persisted row.
func Require(ctx context.Context) (Tenant, error) {
	t := Get(ctx)
	if t.IsZero() {
		return Tenant{}, ErrNoTenant
	}
	return t, nil
}
