package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/flow/domain"
)

// expiredRetention keeps a record readable for a while past its ExpiresAt so
// the engine can answer with the expired failure instead of not-found before
// the wakeup cleanup lands.
const expiredRetention = time.Minute

// MemoryStateStore implements domain.RuntimeStateRepository using ttlcache.
// Intended for single-process deployments and tests; the cache's own TTL is
// a safety net behind the engine's wakeup-driven cleanup.
type MemoryStateStore struct {
	cache *ttlcache.Cache[string, *domain.RuntimeState]
}

// NewMemoryStateStore creates a new in-memory state store with automatic
// cleanup.
func NewMemoryStateStore() *MemoryStateStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.RuntimeState](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryStateStore{cache: cache}
}

// Get implements domain.RuntimeStateRepository.Get.
func (s *MemoryStateStore) Get(_ context.Context, sessionID string) (*domain.RuntimeState, error) {
	item := s.cache.Get(sessionID)
	if item == nil {
		return nil, domain.ErrSessionNotFound
	}
	return item.Value(), nil
}

// Put implements domain.RuntimeStateRepository.Put.
func (s *MemoryStateStore) Put(_ context.Context, state *domain.RuntimeState) error {
	ttl := time.Until(state.ExpiresAt) + expiredRetention
	s.cache.Set(state.SessionID, state, ttl)
	return nil
}

// Delete implements domain.RuntimeStateRepository.Delete. Deleting a missing
// record is a no-op.
func (s *MemoryStateStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStateStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ domain.RuntimeStateRepository = (*MemoryStateStore)(nil)
