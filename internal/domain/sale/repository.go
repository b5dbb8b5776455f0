package sale

import (
	"context"
	"time"

	"farmapos/internal/core/id"
)

// Repository defines tenant-scoped persistence for sale headers and lines.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	Update(ctx context.Context, s *Sale) error

	// GetPendingByUser returns the single Pending sale owned by the user, or
	// a NotFound error. At most one exists per (user, site, company).
	GetPendingByUser(ctx context.Context, userID id.ID) (*Sale, error)

	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)
	InsertLine(ctx context.Context, line *Line) error
	UpdateLine(ctx context.Context, line *Line) error
	DeleteLine(ctx context.Context, lineID id.ID) error
	DeleteLines(ctx context.Context, saleID id.ID) error

	// ListCompletedSince returns Completed sales of the user finished at or
	// after the given time. Feeds register reconciliation.
	ListCompletedSince(ctx context.Context, userID id.ID, since time.Time) ([]*Sale, error)
}
