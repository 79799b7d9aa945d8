package flowengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"go.pilab.hu/flow/domain"
	"go.pilab.hu/flow/internal/audit"
	"go.pilab.hu/flow/internal/metrics"
)

const (
	// DefaultTTL bounds a flow's total duration when Init does not override
	// it. The TTL is fixed at creation and is not extended by activity.
	DefaultTTL = 15 * time.Minute

	// SnapshotLimit is the per-session bound of the idempotency log.
	SnapshotLimit = 100
)

var tracer = otel.Tracer("go.pilab.hu/flow/flowengine")

// Engine hosts the session state actors. Each session id maps to one logical
// actor; every operation on a session runs under that session's lock, so for
// a given session operations are strictly serialized in arrival order.
// Operations on different sessions proceed concurrently.
type Engine struct {
	repo       domain.RuntimeStateRepository
	scheduler  WakeupScheduler
	now        func() time.Time
	defaultTTL time.Duration

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a refcounted per-session mutex. The refcount lets the map
// entry be removed once no operation holds or awaits the lock, while two
// concurrent operations on the same session always contend on the same
// mutex instance.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithDefaultTTL overrides DefaultTTL for sessions whose Init does not
// specify a TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.defaultTTL = ttl
		}
	}
}

// NewEngine creates a flow session engine on top of the given state
// repository and wakeup scheduler.
func NewEngine(repo domain.RuntimeStateRepository, scheduler WakeupScheduler, opts ...Option) *Engine {
	e := &Engine{
		repo:       repo,
		scheduler:  scheduler,
		now:        time.Now,
		defaultTTL: DefaultTTL,
		locks:      make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockSession acquires the single-writer lock for a session and returns the
// release func.
func (e *Engine) lockSession(sessionID string) func() {
	e.mu.Lock()
	sl, ok := e.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		e.locks[sessionID] = sl
	}
	sl.refs++
	e.mu.Unlock()

	sl.mu.Lock()

	return func() {
		sl.mu.Unlock()

		e.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(e.locks, sessionID)
		}
		e.mu.Unlock()
	}
}

// load reads the session's state and applies the not-found/expired checks
// shared by Submit, CheckRequest and GetState. Callers hold the session lock.
func (e *Engine) load(ctx context.Context, sessionID string) (*domain.RuntimeState, error) {
	state, err := e.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Expired(e.now()) {
		return nil, domain.ErrSessionExpired
	}
	return state, nil
}

// expire is the wakeup callback. It clears persisted state only while the
// record is actually past its deadline; a stale wakeup that fires after Init
// re-created the session over an expired leftover must not touch the live
// successor. Not client-invokable.
func (e *Engine) expire(sessionID string) {
	ctx := context.Background()
	ctx, span := tracer.Start(ctx, "flowengine.expire", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	unlock := e.lockSession(sessionID)
	defer unlock()

	existing, err := e.repo.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			log.Error().Err(err).Str("session_id", sessionID).Msg("failed to read state for expiry")
		}
		return
	}
	if !existing.Expired(e.now()) {
		return
	}

	if err := e.repo.Delete(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear expired flow session")
		return
	}

	metrics.SessionsExpiredTotal.Inc()
	metrics.ActiveSessionsGauge.Dec()
	audit.Log(audit.ActionSessionExpired, sessionID, existing.FlowID, "", true, nil)

	log.Debug().Str("session_id", sessionID).Msg("flow session expired")
}
