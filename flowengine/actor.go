package flowengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"go.pilab.hu/flow/domain"
	"go.pilab.hu/flow/internal/audit"
	"go.pilab.hu/flow/internal/metrics"
)

// InitParams are the inputs to Engine.Init.
type InitParams struct {
	SessionID   string
	FlowID      string
	FlowType    domain.FlowType
	TenantID    string
	ClientID    string
	EntryNodeID string
	// TTL bounds the whole flow; zero means DefaultTTL.
	TTL         time.Duration
	OAuthParams *domain.OAuthParams
}

// SubmitParams are the inputs to Engine.Submit. Result and NextNodeID are
// computed by the protocol layer before calling the actor.
type SubmitParams struct {
	RequestID    string
	CapabilityID string
	Response     any
	Result       domain.SubmitResult
	NextNodeID   string
	// AuthenticatedUserID, when set, binds the session to the user that the
	// submitted capability authenticated. Only the first binding sticks.
	AuthenticatedUserID string
}

// SubmitOutcome is the result of a Submit: the stored result, and whether it
// was replayed from the idempotency log instead of freshly applied.
type SubmitOutcome struct {
	Result   domain.SubmitResult
	Replayed bool
}

// CheckOutcome is the result of a CheckRequest probe. Found selects which of
// the other two fields is set.
type CheckOutcome struct {
	Found  bool
	Result *domain.SubmitResult
	State  *domain.StateView
}

// Init creates the runtime state for a new flow session. It fails with
// domain.ErrSessionAlreadyExists when a live (non-expired) session is already
// bound to the same id; an expired leftover record is overwritten.
func (e *Engine) Init(ctx context.Context, params InitParams) (*domain.StateView, error) {
	ctx, span := tracer.Start(ctx, "flowengine.Init")
	defer span.End()
	span.SetAttributes(
		attribute.String("flow.session_id", params.SessionID),
		attribute.String("flow.flow_id", params.FlowID),
	)

	if params.SessionID == "" || params.FlowID == "" || params.EntryNodeID == "" {
		return nil, fmt.Errorf("init: sessionID, flowID and entryNodeID are required")
	}

	unlock := e.lockSession(params.SessionID)
	defer unlock()

	existing, err := e.repo.Get(ctx, params.SessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("init: reading existing state: %w", err)
	}

	now := e.now().UTC()
	if existing != nil && !existing.Expired(now) {
		return nil, domain.ErrSessionAlreadyExists
	}

	ttl := params.TTL
	if ttl <= 0 {
		ttl = e.defaultTTL
	}

	state := &domain.RuntimeState{
		SessionID:             params.SessionID,
		FlowID:                params.FlowID,
		FlowType:              params.FlowType,
		TenantID:              params.TenantID,
		ClientID:              params.ClientID,
		CurrentNodeID:         params.EntryNodeID,
		VisitedNodeIDs:        []string{params.EntryNodeID},
		CollectedData:         map[string]any{},
		CompletedCapabilities: []string{},
		OAuthParams:           params.OAuthParams,
		StartedAt:             now,
		ExpiresAt:             now.Add(ttl),
		LastActivityAt:        now,
	}

	if err := e.repo.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("init: persisting state: %w", err)
	}

	e.scheduler.Schedule(state.SessionID, state.ExpiresAt, e.expire)

	metrics.SessionsInitializedTotal.Inc()
	metrics.ActiveSessionsGauge.Inc()
	audit.Log(audit.ActionSessionInitialized, state.SessionID, state.FlowID, params.EntryNodeID, true, nil)

	log.Ctx(ctx).Debug().
		Str("session_id", state.SessionID).
		Str("flow_id", state.FlowID).
		Str("entry_node", params.EntryNodeID).
		Time("expires_at", state.ExpiresAt).
		Msg("flow session initialized")

	return state.View(), nil
}

// Submit applies one step transition. Retried requests (same RequestID) are
// answered from the idempotency log without mutating anything, so a network
// retry or a double-click never advances the flow twice.
func (e *Engine) Submit(ctx context.Context, sessionID string, params SubmitParams) (*SubmitOutcome, error) {
	ctx, span := tracer.Start(ctx, "flowengine.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("flow.session_id", sessionID),
		attribute.String("flow.request_id", params.RequestID),
	)

	if params.RequestID == "" || params.NextNodeID == "" {
		return nil, fmt.Errorf("submit: requestID and nextNodeID are required")
	}
	if err := params.Result.Validate(); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	unlock := e.lockSession(sessionID)
	defer unlock()

	state, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if snap := state.ProcessedRequests.Find(params.RequestID); snap != nil {
		metrics.SubmitsReplayedTotal.Inc()
		log.Ctx(ctx).Debug().
			Str("session_id", sessionID).
			Str("request_id", params.RequestID).
			Msg("submit replayed from idempotency log")
		return &SubmitOutcome{Result: snap.Result, Replayed: true}, nil
	}

	now := e.now().UTC()
	state.VisitedNodeIDs = append(state.VisitedNodeIDs, params.NextNodeID)
	state.CurrentNodeID = params.NextNodeID
	if params.CapabilityID != "" {
		if state.CollectedData == nil {
			state.CollectedData = map[string]any{}
		}
		state.CollectedData[params.CapabilityID] = params.Response
		state.CompletedCapabilities = append(state.CompletedCapabilities, params.CapabilityID)
	}
	if params.AuthenticatedUserID != "" && state.UserID == "" {
		state.UserID = params.AuthenticatedUserID
	}
	state.LastActivityAt = now

	state.ProcessedRequests = state.ProcessedRequests.Record(domain.ProcessedRequestSnapshot{
		RequestID:    params.RequestID,
		ProcessedAt:  now,
		ResultNodeID: params.NextNodeID,
		Result:       params.Result,
	}, SnapshotLimit)

	if err := e.repo.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("submit: persisting state: %w", err)
	}

	metrics.SubmitsAppliedTotal.Inc()
	audit.Log(audit.ActionStepApplied, sessionID, state.FlowID, params.NextNodeID, true, nil)

	log.Ctx(ctx).Debug().
		Str("session_id", sessionID).
		Str("request_id", params.RequestID).
		Str("node_id", params.NextNodeID).
		Str("capability_id", params.CapabilityID).
		Msg("flow step applied")

	return &SubmitOutcome{Result: params.Result}, nil
}

// CheckRequest is the read-only idempotency probe. The protocol layer calls
// it before doing expensive work, such as regenerating a UI contract.
func (e *Engine) CheckRequest(ctx context.Context, sessionID, requestID string) (*CheckOutcome, error) {
	ctx, span := tracer.Start(ctx, "flowengine.CheckRequest")
	defer span.End()

	unlock := e.lockSession(sessionID)
	defer unlock()

	state, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if snap := state.ProcessedRequests.Find(requestID); snap != nil {
		result := snap.Result
		return &CheckOutcome{Found: true, Result: &result}, nil
	}
	return &CheckOutcome{Found: false, State: state.View()}, nil
}

// GetState returns the redacted public view of the session.
func (e *Engine) GetState(ctx context.Context, sessionID string) (*domain.StateView, error) {
	ctx, span := tracer.Start(ctx, "flowengine.GetState")
	defer span.End()

	unlock := e.lockSession(sessionID)
	defer unlock()

	state, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.View(), nil
}

// Cancel clears the wakeup and deletes persisted state. It is idempotent:
// cancelling a missing or already-cancelled session succeeds.
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "flowengine.Cancel")
	defer span.End()

	unlock := e.lockSession(sessionID)
	defer unlock()

	e.scheduler.Cancel(sessionID)

	existing, err := e.repo.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("cancel: reading state: %w", err)
	}

	if err := e.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("cancel: deleting state: %w", err)
	}

	if existing != nil {
		metrics.SessionsCancelledTotal.Inc()
		metrics.ActiveSessionsGauge.Dec()
		audit.Log(audit.ActionSessionCancelled, sessionID, existing.FlowID, "", true, nil)
	}

	log.Ctx(ctx).Debug().Str("session_id", sessionID).Msg("flow session cancelled")
	return nil
}
