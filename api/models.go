package api

import "go.pilab.hu/flow/domain"

// InitSessionRequest starts a new flow session. SessionID is optional; the
// server generates one when absent.
type InitSessionRequest struct {
	SessionID   string              `json:"sessionId,omitempty"`
	FlowID      string              `json:"flowId"`
	FlowType    domain.FlowType     `json:"flowType"`
	TenantID    string              `json:"tenantId"`
	ClientID    string              `json:"clientId"`
	EntryNodeID string              `json:"entryNodeId"`
	TTLMs       int64               `json:"ttlMs,omitempty"`
	OAuthParams *domain.OAuthParams `json:"oauthParams,omitempty"`
}

// SubmitRequest applies one step transition. The orchestrating protocol
// layer supplies the pre-computed result and next node; RequestID is the
// caller's idempotency key.
type SubmitRequest struct {
	RequestID           string              `json:"requestId"`
	CapabilityID        string              `json:"capabilityId,omitempty"`
	Response            any                 `json:"response,omitempty"`
	Result              domain.SubmitResult `json:"result"`
	NextNodeID          string              `json:"nextNodeId"`
	AuthenticatedUserID string              `json:"authenticatedUserId,omitempty"`
}

// SubmitResponse returns the applied (or replayed) result.
type SubmitResponse struct {
	Result   domain.SubmitResult `json:"result"`
	Replayed bool                `json:"replayed"`
}

// CheckRequestResponse answers the idempotency probe.
type CheckRequestResponse struct {
	Found  bool                 `json:"found"`
	Result *domain.SubmitResult `json:"result,omitempty"`
	State  *domain.StateView    `json:"state,omitempty"`
}

// GenerateContractRequest asks for a UI contract for a compiled node. State
// and Context are optional.
type GenerateContractRequest struct {
	Node      domain.CompiledNode `json:"node"`
	FlowID    string              `json:"flowId"`
	State     *domain.StateView   `json:"state,omitempty"`
	Context   *domain.FlowContext `json:"context,omitempty"`
	ProfileID string              `json:"profileId,omitempty"`
}
