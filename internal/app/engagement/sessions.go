package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/infra/metrics"
)

// Factory builds an unloaded session for a user.
type Factory func(userID string) *Service

// Sessions caches one loaded Service per user. A session expires TTL after
// it was loaded and the least recently used is dropped when the cache is full.
type Sessions struct {
	mu      sync.Mutex
	lru     *expirable.LRU[string, *Service]
	factory Factory
}

// NewSessions creates a registry holding up to size sessions.
func NewSessions(size int, ttl time.Duration, factory Factory) *Sessions {
	return &Sessions{
		lru:     expirable.NewLRU[string, *Service](size, nil, ttl),
		factory: factory,
	}
}

// Get returns the user's session, constructing and loading it on a miss.
// Loads run outside the registry lock; when two callers load the same user
// concurrently the first one added wins. A failed load is not cached.
func (s *Sessions) Get(ctx context.Context, userID string) (*Service, error) {
	if userID == "" {
		return nil, domain.ErrEmptyUserID
	}
	if svc, ok := s.lru.Get(userID); ok {
		return svc, nil
	}

	fresh := s.factory(userID)
	if err := fresh.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.lru.Get(userID); ok {
		return svc, nil
	}
	s.lru.Add(userID, fresh)
	s.observe()
	return fresh, nil
}

// Evict drops a user's session so the next Get reloads from storage.
func (s *Sessions) Evict(userID string) {
	s.lru.Remove(userID)
	s.observe()
}

// Len returns the number of cached sessions.
func (s *Sessions) Len() int {
	return s.lru.Len()
}

// Close drops every session.
func (s *Sessions) Close() {
	s.lru.Purge()
	s.observe()
}

// observe publishes the cache size. Entries past their TTL count until the
// expiry sweep or a re-add replaces them.
func (s *Sessions) observe() {
	metrics.SessionsActive.Set(float64(s.lru.Len()))
}
