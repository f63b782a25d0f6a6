// Package tags caches the backend's tag catalogue for pickers and
// filters. Uniqueness of tag names is the backend's concern.
package tags

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
)

// Store holds the last fetched tag list together with the usual
// last-error slot.
type Store struct {
	gateway gateway.TagGateway
	logger  *zap.Logger

	mu      sync.Mutex
	tags    []domain.Tag
	lastErr error
}

// New creates an empty Store.
func New(gw gateway.TagGateway, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{gateway: gw, logger: logger}
}

// Tags returns a snapshot of the cached catalogue.
func (s *Store) Tags() []domain.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]domain.Tag, len(s.tags))
	copy(snapshot, s.tags)
	return snapshot
}

// Err returns the last recorded error.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ErrorMessage returns the last error as a display string.
func (s *Store) ErrorMessage() string {
	return domain.ErrorMessage(s.Err())
}

// ClearError dismisses the last error explicitly.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// List replaces the cached catalogue with the backend's listing.
func (s *Store) List(ctx context.Context, skip, limit int) ([]domain.Tag, error) {
	tags, err := s.gateway.ListTags(ctx, skip, limit)
	if err != nil {
		s.logger.Warn("tag listing failed", zap.Error(err))
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.tags = tags
	s.lastErr = nil
	s.mu.Unlock()
	return tags, nil
}

// Create registers a new tag and appends it to the cache.
func (s *Store) Create(ctx context.Context, name string) (*domain.Tag, error) {
	if strings.TrimSpace(name) == "" {
		err := domain.NewError(domain.ErrCodeValidation, "tag name is required")
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	tag, err := s.gateway.CreateTag(ctx, name)
	if err != nil {
		s.logger.Warn("tag creation failed", zap.String("name", name), zap.Error(err))
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.tags = append(s.tags, *tag)
	s.lastErr = nil
	s.mu.Unlock()
	return tag, nil
}
