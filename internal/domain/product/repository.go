package product

import (
	"context"
	"time"

	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
)

// Repository defines persistence operations for the product catalog.
// Every query is tenant-scoped by the (site, company) pair from context.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID id.ID) error
	List(ctx context.Context, filter ListFilter) ([]*Product, error)

	// ReserveStock decrements stock by qty base units in a single conditional
	// statement (stock >= qty), returning InsufficientStock when the row does
	// not qualify. This is the only way stock ever goes down.
	ReserveStock(ctx context.Context, productID id.ID, qty types.Quantity) error

	// ReleaseStock returns qty base units to the product (remove, cancel).
	ReleaseStock(ctx context.Context, productID id.ID, qty types.Quantity) error

	// AddUnitsSold increments the lifetime sale counter at completion.
	AddUnitsSold(ctx context.Context, productID id.ID, qty types.Quantity) error

	// FindLowStock returns products at or below their minimum threshold.
	FindLowStock(ctx context.Context) ([]*Product, error)

	// FindExpiring returns products expiring on or before the given date,
	// including already expired ones.
	FindExpiring(ctx context.Context, before time.Time) ([]*Product, error)
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
