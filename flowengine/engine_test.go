package flowengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/flow/cache"
	"go.pilab.hu/flow/domain"
	"go.pilab.hu/flow/internal/metrics"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeScheduler records wakeups instead of firing them, so tests control
// expiry explicitly.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	callbacks map[string]WakeupFunc
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		scheduled: make(map[string]time.Time),
		callbacks: make(map[string]WakeupFunc),
	}
}

func (s *fakeScheduler) Schedule(sessionID string, at time.Time, fn WakeupFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[sessionID] = at
	s.callbacks[sessionID] = fn
}

func (s *fakeScheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scheduled, sessionID)
	delete(s.callbacks, sessionID)
	s.cancelled = append(s.cancelled, sessionID)
}

func (s *fakeScheduler) Stop() {}

func (s *fakeScheduler) fire(sessionID string) {
	s.mu.Lock()
	fn := s.callbacks[sessionID]
	s.mu.Unlock()
	if fn != nil {
		fn(sessionID)
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *fakeScheduler, *cache.MemoryStateStore) {
	t.Helper()
	clock := newFakeClock()
	scheduler := newFakeScheduler()
	store := cache.NewMemoryStateStore()
	t.Cleanup(func() { _ = store.Close() })
	engine := NewEngine(store, scheduler, WithClock(clock.Now))
	return engine, clock, scheduler, store
}

func initParams(sessionID string) InitParams {
	return InitParams{
		SessionID:   sessionID,
		FlowID:      "f1",
		FlowType:    domain.FlowTypeLogin,
		TenantID:    "t1",
		ClientID:    "c1",
		EntryNodeID: "start",
	}
}

func submitParams(requestID, nextNodeID string) SubmitParams {
	return SubmitParams{
		RequestID:    requestID,
		CapabilityID: "identifier_email",
		Response:     map[string]any{"email": "user@example.com"},
		Result:       domain.NewContinueResult(&domain.UIContract{Version: "1.0", State: "f1:" + nextNodeID}),
		NextNodeID:   nextNodeID,
	}
}

func TestInitCreatesSession(t *testing.T) {
	engine, clock, scheduler, _ := newTestEngine(t)
	ctx := context.Background()

	view, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	assert.Equal(t, "s1", view.SessionID)
	assert.Equal(t, "start", view.CurrentNodeID)
	assert.Equal(t, []string{"start"}, view.VisitedNodeIDs)
	assert.Empty(t, view.CompletedCapabilities)
	assert.True(t, view.ExpiresAt.After(clock.Now()))
	assert.Equal(t, clock.Now().UTC().Add(DefaultTTL), view.ExpiresAt)

	got, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "start", got.CurrentNodeID)
	assert.Equal(t, []string{"start"}, got.VisitedNodeIDs)

	scheduler.mu.Lock()
	at, ok := scheduler.scheduled["s1"]
	scheduler.mu.Unlock()
	require.True(t, ok, "wakeup must be scheduled at Init")
	assert.Equal(t, view.ExpiresAt, at)
}

func TestInitRequiresIdentity(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	_, err := engine.Init(context.Background(), InitParams{FlowID: "f1", EntryNodeID: "start"})
	assert.Error(t, err)
}

func TestInitConflictOnLiveSession(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	_, err = engine.Init(ctx, initParams("s1"))
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyExists)
}

func TestInitOverwritesExpiredLeftover(t *testing.T) {
	engine, clock, _, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams("s1")
	params.TTL = time.Second
	_, err := engine.Init(ctx, params)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	view, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, view.VisitedNodeIDs)
}

func TestSubmitAdvancesState(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	outcome, err := engine.Submit(ctx, "s1", submitParams("r1", "auth_method"))
	require.NoError(t, err)
	assert.False(t, outcome.Replayed)
	assert.Equal(t, domain.SubmitResultContinue, outcome.Result.Kind)

	view, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "auth_method", view.CurrentNodeID)
	assert.Equal(t, []string{"start", "auth_method"}, view.VisitedNodeIDs)
	assert.Equal(t, []string{"identifier_email"}, view.CompletedCapabilities)
	assert.Equal(t, map[string]any{"email": "user@example.com"}, view.CollectedData["identifier_email"])
}

func TestSubmitReplaysDuplicateRequest(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	first, err := engine.Submit(ctx, "s1", submitParams("r1", "auth_method"))
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := engine.Submit(ctx, "s1", submitParams("r1", "auth_method"))
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Result, second.Result)

	view, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, view.VisitedNodeIDs, 2, "replay must not advance the flow")
	assert.Len(t, view.CompletedCapabilities, 1, "replay must not double-count the capability")
}

// currentNodeId must equal the last visited node after every successful
// transition.
func TestCurrentNodeInvariant(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	view, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)
	assert.Equal(t, view.VisitedNodeIDs[len(view.VisitedNodeIDs)-1], view.CurrentNodeID)

	for i, node := range []string{"identifier", "auth_method", "mfa", "end"} {
		_, err := engine.Submit(ctx, "s1", submitParams(fmt.Sprintf("r%d", i), node))
		require.NoError(t, err)

		view, err = engine.GetState(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, view.VisitedNodeIDs[len(view.VisitedNodeIDs)-1], view.CurrentNodeID)
	}
}

func TestSubmitBindsUserOnce(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	params := submitParams("r1", "mfa")
	params.AuthenticatedUserID = "user-1"
	_, err = engine.Submit(ctx, "s1", params)
	require.NoError(t, err)

	params = submitParams("r2", "end")
	params.AuthenticatedUserID = "user-2"
	_, err = engine.Submit(ctx, "s1", params)
	require.NoError(t, err)

	view, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", view.UserID, "only the first user binding sticks")
}

func TestOperationsOnMissingSession(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.GetState(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = engine.Submit(ctx, "missing", submitParams("r1", "auth_method"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = engine.CheckRequest(ctx, "missing", "r1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOperationsOnExpiredSession(t *testing.T) {
	engine, clock, _, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams("s1")
	params.TTL = time.Second
	_, err := engine.Init(ctx, params)
	require.NoError(t, err)

	clock.Advance(time.Second + time.Millisecond)

	_, err = engine.GetState(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	_, err = engine.Submit(ctx, "s1", submitParams("r1", "auth_method"))
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	_, err = engine.CheckRequest(ctx, "s1", "r1")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	// Cancel always succeeds.
	assert.NoError(t, engine.Cancel(ctx, "s1"))
}

func TestCheckRequest(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	miss, err := engine.CheckRequest(ctx, "s1", "r1")
	require.NoError(t, err)
	assert.False(t, miss.Found)
	require.NotNil(t, miss.State)
	assert.Equal(t, "start", miss.State.CurrentNodeID)

	outcome, err := engine.Submit(ctx, "s1", submitParams("r1", "auth_method"))
	require.NoError(t, err)

	hit, err := engine.CheckRequest(ctx, "s1", "r1")
	require.NoError(t, err)
	assert.True(t, hit.Found)
	require.NotNil(t, hit.Result)
	assert.Equal(t, outcome.Result, *hit.Result)
	assert.Nil(t, hit.State)
}

func TestSnapshotLogBounded(t *testing.T) {
	engine, clock, _, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	for i := 0; i <= SnapshotLimit; i++ {
		clock.Advance(time.Millisecond)
		_, err := engine.Submit(ctx, "s1", submitParams(fmt.Sprintf("r%d", i), "auth_method"))
		require.NoError(t, err)
	}

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, state.ProcessedRequests, SnapshotLimit)
	assert.Equal(t, "r1", state.ProcessedRequests[0].RequestID, "oldest snapshot must be evicted first")

	// The very first request is no longer replayable; a recent one is.
	first, err := engine.CheckRequest(ctx, "s1", "r0")
	require.NoError(t, err)
	assert.False(t, first.Found)

	last, err := engine.CheckRequest(ctx, "s1", fmt.Sprintf("r%d", SnapshotLimit))
	require.NoError(t, err)
	assert.True(t, last.Found)
}

func TestCancelIsIdempotent(t *testing.T) {
	engine, _, scheduler, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	require.NoError(t, engine.Cancel(ctx, "s1"))
	require.NoError(t, engine.Cancel(ctx, "s1"))

	_, err = engine.GetState(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	scheduler.mu.Lock()
	cancelled := append([]string(nil), scheduler.cancelled...)
	scheduler.mu.Unlock()
	assert.Contains(t, cancelled, "s1")
}

func TestWakeupClearsSession(t *testing.T) {
	engine, clock, scheduler, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams("s1")
	params.TTL = time.Second
	_, err := engine.Init(ctx, params)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	scheduler.fire("s1")

	_, err = engine.GetState(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestTTLFixedAtInit(t *testing.T) {
	engine, clock, _, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams("s1")
	params.TTL = 10 * time.Second
	view, err := engine.Init(ctx, params)
	require.NoError(t, err)
	expiresAt := view.ExpiresAt

	// Activity does not slide the window.
	clock.Advance(5 * time.Second)
	_, err = engine.Submit(ctx, "s1", submitParams("r1", "auth_method"))
	require.NoError(t, err)

	got, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, expiresAt, got.ExpiresAt)
}

// A view returned by GetState must stay readable while later submits mutate
// the session, since the caller serializes it outside the session lock.
func TestViewsReadableWhileSubmitting(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			view, err := engine.GetState(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			for id, response := range view.CollectedData {
				assert.NotEmpty(t, id)
				assert.NotNil(t, response)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		params := submitParams(fmt.Sprintf("r%d", i), "auth_method")
		params.CapabilityID = fmt.Sprintf("cap%d", i)
		_, err := engine.Submit(ctx, "s1", params)
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
}

func TestStaleWakeupSparesLiveSuccessor(t *testing.T) {
	engine, clock, scheduler, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams("s1")
	params.TTL = time.Second
	_, err := engine.Init(ctx, params)
	require.NoError(t, err)

	// Capture the first session's wakeup before Init replaces it.
	scheduler.mu.Lock()
	stale := scheduler.callbacks["s1"]
	scheduler.mu.Unlock()
	require.NotNil(t, stale)

	clock.Advance(2 * time.Second)

	_, err = engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	stale("s1")

	view, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, view.VisitedNodeIDs)
}

// brokenRepo fails every read, for exercising expiry against a backend outage.
type brokenRepo struct {
	getErr  error
	deletes []string
}

func (r *brokenRepo) Get(context.Context, string) (*domain.RuntimeState, error) {
	return nil, r.getErr
}

func (r *brokenRepo) Put(context.Context, *domain.RuntimeState) error { return nil }

func (r *brokenRepo) Delete(_ context.Context, sessionID string) error {
	r.deletes = append(r.deletes, sessionID)
	return nil
}

func TestExpireKeepsStateOnBackendReadError(t *testing.T) {
	repo := &brokenRepo{getErr: errors.New("backend unavailable")}
	engine := NewEngine(repo, newFakeScheduler())

	engine.expire("s1")

	assert.Empty(t, repo.deletes, "a read failure must not trigger deletion")
}

func TestActiveSessionsGaugeOnReinit(t *testing.T) {
	engine, clock, _, _ := newTestEngine(t)
	ctx := context.Background()

	params := initParams("s1")
	params.TTL = time.Second
	_, err := engine.Init(ctx, params)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	before := testutil.ToFloat64(metrics.ActiveSessionsGauge)

	// Re-creating over the expired leftover counts the new session, so its
	// later removal cannot push the gauge negative.
	_, err = engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ActiveSessionsGauge))

	require.NoError(t, engine.Cancel(ctx, "s1"))
	assert.Equal(t, before, testutil.ToFloat64(metrics.ActiveSessionsGauge))
}

func TestConcurrentSubmitsAreSerialized(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Init(ctx, initParams("s1"))
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params := submitParams(fmt.Sprintf("r%d", i), fmt.Sprintf("node%d", i))
			params.CapabilityID = fmt.Sprintf("cap%d", i)
			_, err := engine.Submit(ctx, "s1", params)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view, err := engine.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, view.VisitedNodeIDs, n+1, "no transition may be lost or doubled")
	assert.Len(t, view.CompletedCapabilities, n)
	assert.Equal(t, view.VisitedNodeIDs[len(view.VisitedNodeIDs)-1], view.CurrentNodeID)
}
