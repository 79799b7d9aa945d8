package domain

import "time"

// FlowType identifies which protocol-level flow a session is driving.
type FlowType string

const (
	FlowTypeLogin         FlowType = "login"
	FlowTypeAuthorization FlowType = "authorization"
	FlowTypeConsent       FlowType = "consent"
	FlowTypeLogout        FlowType = "logout"
)

// OAuthParams captures the OAuth2/OIDC request parameters at flow start.
// They are immutable after Init; the protocol layer reads them back when it
// finishes the flow (authorization code issuance, redirect building, etc.).
type OAuthParams struct {
	State               string         `json:"state,omitempty" bson:"state,omitempty"`
	Nonce               string         `json:"nonce,omitempty" bson:"nonce,omitempty"`
	CodeChallenge       string         `json:"codeChallenge,omitempty" bson:"code_challenge,omitempty"`
	CodeChallengeMethod string         `json:"codeChallengeMethod,omitempty" bson:"code_challenge_method,omitempty"`
	RedirectURI         string         `json:"redirectUri,omitempty" bson:"redirect_uri,omitempty"`
	Scope               string         `json:"scope,omitempty" bson:"scope,omitempty"`
	ResponseType        string         `json:"responseType,omitempty" bson:"response_type,omitempty"`
	ResponseMode        string         `json:"responseMode,omitempty" bson:"response_mode,omitempty"`
	ACRValues           string         `json:"acrValues,omitempty" bson:"acr_values,omitempty"`
	MaxAge              int64          `json:"maxAge,omitempty" bson:"max_age,omitempty"`
	UILocales           string         `json:"uiLocales,omitempty" bson:"ui_locales,omitempty"`
	Prompt              string         `json:"prompt,omitempty" bson:"prompt,omitempty"`
	LoginHint           string         `json:"loginHint,omitempty" bson:"login_hint,omitempty"`
	Claims              map[string]any `json:"claims,omitempty" bson:"claims,omitempty"`
}

// RuntimeState is the full durable record of one flow session. It is owned
// exclusively by that session's actor; no other component mutates it.
type RuntimeState struct {
	SessionID string   `json:"sessionId" bson:"_id"`
	FlowID    string   `json:"flowId" bson:"flow_id"`
	FlowType  FlowType `json:"flowType" bson:"flow_type"`
	TenantID  string   `json:"tenantId" bson:"tenant_id"`
	ClientID  string   `json:"clientId" bson:"client_id"`

	// CurrentNodeID always equals the last element of VisitedNodeIDs.
	CurrentNodeID  string   `json:"currentNodeId" bson:"current_node_id"`
	VisitedNodeIDs []string `json:"visitedNodeIds" bson:"visited_node_ids"`

	// CollectedData maps a capability id to the response submitted for it.
	// Payloads are opaque to the engine.
	CollectedData         map[string]any `json:"collectedData" bson:"collected_data"`
	CompletedCapabilities []string       `json:"completedCapabilities" bson:"completed_capabilities"`

	OAuthParams *OAuthParams `json:"oauthParams,omitempty" bson:"oauth_params,omitempty"`

	// UserID is empty until authentication completes within the flow.
	UserID string `json:"userId,omitempty" bson:"user_id,omitempty"`

	StartedAt      time.Time `json:"startedAt" bson:"started_at"`
	ExpiresAt      time.Time `json:"expiresAt" bson:"expires_at"`
	LastActivityAt time.Time `json:"lastActivityAt" bson:"last_activity_at"`

	// ProcessedRequests is the bounded idempotency log, ordered by
	// ProcessedAt ascending. Never exposed through View.
	ProcessedRequests SnapshotLog `json:"processedRequests" bson:"processed_requests"`
}

// Expired reports whether the session's TTL has elapsed at the given instant.
func (s *RuntimeState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// View returns the redacted public projection of the state. The idempotency
// log never leaves the actor. The collections are copied so a view stays safe
// to read after the session lock is released; capability responses are never
// mutated in place after Submit stores them, so copying the map entries is
// enough. OAuthParams is shared because it is immutable after Init.
func (s *RuntimeState) View() *StateView {
	return &StateView{
		SessionID:             s.SessionID,
		FlowID:                s.FlowID,
		FlowType:              s.FlowType,
		TenantID:              s.TenantID,
		ClientID:              s.ClientID,
		CurrentNodeID:         s.CurrentNodeID,
		VisitedNodeIDs:        cloneStrings(s.VisitedNodeIDs),
		CompletedCapabilities: cloneStrings(s.CompletedCapabilities),
		CollectedData:         cloneData(s.CollectedData),
		OAuthParams:           s.OAuthParams,
		UserID:                s.UserID,
		ExpiresAt:             s.ExpiresAt,
	}
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func cloneData(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// StateView is the public, redacted projection of a RuntimeState. It is what
// the actor hands back to the protocol layer and what the contract generator
// consumes as the runtime-state projection.
type StateView struct {
	SessionID             string         `json:"sessionId"`
	FlowID                string         `json:"flowId"`
	FlowType              FlowType       `json:"flowType"`
	TenantID              string         `json:"tenantId"`
	ClientID              string         `json:"clientId"`
	CurrentNodeID         string         `json:"currentNodeId"`
	VisitedNodeIDs        []string       `json:"visitedNodeIds"`
	CompletedCapabilities []string       `json:"completedCapabilities"`
	CollectedData         map[string]any `json:"collectedData,omitempty"`
	OAuthParams           *OAuthParams   `json:"oauthParams,omitempty"`
	UserID                string         `json:"userId,omitempty"`
	ExpiresAt             time.Time      `json:"expiresAt"`
}

// ProcessedRequestSnapshot records the outcome of one applied Submit so a
// retried request can be answered without re-applying the transition.
type ProcessedRequestSnapshot struct {
	RequestID    string       `json:"requestId" bson:"request_id"`
	ProcessedAt  time.Time    `json:"processedAt" bson:"processed_at"`
	ResultNodeID string       `json:"resultNodeId" bson:"result_node_id"`
	Result       SubmitResult `json:"result" bson:"result"`
}
