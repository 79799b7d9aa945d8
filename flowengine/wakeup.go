package flowengine

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

// WakeupFunc is invoked with the session id when a scheduled wakeup fires.
type WakeupFunc func(sessionID string)

// WakeupScheduler provides the one-shot deferred callback the engine uses to
// expire sessions. At most one wakeup is pending per session; scheduling
// again replaces the previous one.
type WakeupScheduler interface {
	Schedule(sessionID string, at time.Time, fn WakeupFunc)
	Cancel(sessionID string)
	Stop()
}

// TTLScheduler implements WakeupScheduler on top of ttlcache: the callback is
// stored as the cache value with a TTL running until the wakeup instant, and
// the expiry eviction hook fires it. Explicit Cancel deletes the entry, which
// evicts with a non-expiry reason and is ignored.
type TTLScheduler struct {
	cache *ttlcache.Cache[string, WakeupFunc]
}

// NewTTLScheduler creates and starts a TTLScheduler.
func NewTTLScheduler() *TTLScheduler {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, WakeupFunc](),
	)
	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, WakeupFunc]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		log.Debug().Str("session_id", item.Key()).Msg("wakeup fired")
		item.Value()(item.Key())
	})

	go cache.Start()

	return &TTLScheduler{cache: cache}
}

// Schedule implements WakeupScheduler.Schedule. A wakeup instant already in
// the past fires immediately.
func (s *TTLScheduler) Schedule(sessionID string, at time.Time, fn WakeupFunc) {
	ttl := time.Until(at)
	if ttl <= 0 {
		go fn(sessionID)
		return
	}
	s.cache.Set(sessionID, fn, ttl)
}

// Cancel implements WakeupScheduler.Cancel.
func (s *TTLScheduler) Cancel(sessionID string) {
	s.cache.Delete(sessionID)
}

// Stop halts the expiry loop. Pending wakeups are dropped.
func (s *TTLScheduler) Stop() {
	s.cache.Stop()
}

var _ WakeupScheduler = (*TTLScheduler)(nil)
