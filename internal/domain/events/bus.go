// Package events provides the in-process pub/sub channel used to announce
// completed sales to other components (header stats, receipt export).
// Explicit subscription replaces the legacy global broadcast.
package events

import (
	"context"
	"sync"
	"time"

	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
)

// SaleCompleted is emitted once per finalized sale, after commit.
type SaleCompleted struct {
	SaleID      id.ID
	UserID      id.ID
	AmountDue   types.Money
	CompletedAt time.Time
}

// SaleCompletedHandler consumes completion events. Handlers run synchronously
// on the publishing goroutine and must not block.
type SaleCompletedHandler func(ctx context.Context, ev SaleCompleted)

// Bus is a minimal synchronous pub/sub hub.
type Bus struct {
	mu   sync.RWMutex
	subs []SaleCompletedHandler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeSaleCompleted registers a handler for completion events.
func (b *Bus) SubscribeSaleCompleted(fn SaleCompletedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// PublishSaleCompleted delivers the event to every subscriber.
func (b *Bus) PublishSaleCompleted(ctx context.Context, ev SaleCompleted) {
	b.mu.RLock()
	handlers := make([]SaleCompletedHandler, len(b.subs))
	copy(handlers, b.subs)
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ctx, ev)
	}
}
