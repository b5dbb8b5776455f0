package client

import (
	"context"

	"farmapos/internal/core/id"
	"farmapos/pkg/logger"
)

// Notifier is the client-facing slice of the notification service.
type Notifier interface {
	NotifyNewClient(ctx context.Context, clientID id.ID, name string)
}

// Service provides client catalog operations.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a new client service. notifier may be nil.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Create validates and inserts a new client, announcing it to the
// notification feed (best-effort).
func (s *Service) Create(ctx context.Context, c *Client) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyNewClient(ctx, c.ID, c.Name)
	}
	logger.Info(ctx, "client created", "id", c.ID, "name", c.Name)
	return nil
}

// GetByID retrieves a client.
func (s *Service) GetByID(ctx context.Context, clientID id.ID) (*Client, error) {
	return s.repo.GetByID(ctx, clientID)
}

// Update validates and persists client changes.
func (s *Service) Update(ctx context.Context, c *Client) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

// List retrieves clients matching the search term.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]*Client, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, search, limit, offset)
}
