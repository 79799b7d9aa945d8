// Package contract projects a compiled flow node and the session's runtime
// state into the client-facing UI contract. Generation is pure: no I/O, no
// clock, no shared state, so identical inputs always yield identical
// contracts and redundant calls are safe.
package contract

import (
	"go.pilab.hu/flow/domain"
)

// Version is the UI contract schema version stamped on every contract.
const Version = "1.0"

// Generate builds the UIContract for the given node. state and flowCtx may be
// nil; profileID selects the feature-flag profile and falls back to
// DefaultProfileID when unknown.
func Generate(node *domain.CompiledNode, flowID string, state *domain.StateView, flowCtx *domain.FlowContext, profileID string) *domain.UIContract {
	return &domain.UIContract{
		Version:      Version,
		State:        flowID + ":" + node.ID,
		Intent:       node.Intent,
		Features:     FeaturesFor(profileID),
		Capabilities: projectCapabilities(node.Capabilities),
		Context:      mergeContext(flowCtx, state),
		Actions:      ActionsFor(node.Type),
	}
}

// projectCapabilities maps resolved capabilities 1:1 onto their public shape,
// stripping resolver-internal metadata.
func projectCapabilities(resolved []domain.ResolvedCapability) []domain.Capability {
	capabilities := make([]domain.Capability, 0, len(resolved))
	for _, rc := range resolved {
		capabilities = append(capabilities, domain.Capability{
			Type:       rc.Type,
			ID:         rc.ID,
			Stability:  rc.Stability,
			Required:   rc.Required,
			Hints:      rc.Hints,
			Validation: rc.Validation,
		})
	}
	return capabilities
}

// mergeContext combines the caller-supplied flow context with context derived
// from the runtime state. Explicit fields always win; the user is only
// synthesized when the caller supplied none.
func mergeContext(flowCtx *domain.FlowContext, state *domain.StateView) domain.FlowContext {
	var merged domain.FlowContext
	if flowCtx != nil {
		merged = *flowCtx
	}

	if merged.User == nil && state != nil {
		if state.UserID != "" {
			merged.User = &domain.UserContext{ID: state.UserID}
		} else if email := pendingEmail(state.CollectedData); email != "" {
			merged.User = &domain.UserContext{ID: "pending", Email: email}
		}
	}

	return merged
}

// pendingEmail extracts the email submitted through the identifier_email
// capability, if any.
func pendingEmail(collected map[string]any) string {
	raw, ok := collected["identifier_email"]
	if !ok {
		return ""
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	email, _ := obj["email"].(string)
	return email
}
