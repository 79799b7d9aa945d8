package domain

import "fmt"

// SubmitResultKind discriminates the SubmitResult union.
type SubmitResultKind string

const (
	SubmitResultContinue SubmitResultKind = "continue"
	SubmitResultRedirect SubmitResultKind = "redirect"
	SubmitResultError    SubmitResultKind = "error"
)

// SubmitResult is the tagged outcome of an applied step transition. Exactly
// one of the variant pointers is set, matching Kind. The protocol layer
// computes it (using the contract generator and the policy resolvers) and the
// actor stores and replays it verbatim.
type SubmitResult struct {
	Kind     SubmitResultKind `json:"type" bson:"type"`
	Continue *ContinueResult  `json:"continue,omitempty" bson:"continue,omitempty"`
	Redirect *RedirectResult  `json:"redirect,omitempty" bson:"redirect,omitempty"`
	Error    *ErrorResult     `json:"error,omitempty" bson:"error,omitempty"`
}

// ContinueResult carries the UI contract for the next step.
type ContinueResult struct {
	Contract *UIContract `json:"uiContract" bson:"ui_contract"`
}

// RedirectResult instructs the client to leave the flow UI.
type RedirectResult struct {
	URL    string `json:"url" bson:"url"`
	Method string `json:"method" bson:"method"`
}

// ErrorResult is a terminal flow-level failure surfaced to the client.
type ErrorResult struct {
	Code    string `json:"code" bson:"code"`
	Message string `json:"message" bson:"message"`
}

// NewContinueResult builds a continue-variant SubmitResult.
func NewContinueResult(contract *UIContract) SubmitResult {
	return SubmitResult{Kind: SubmitResultContinue, Continue: &ContinueResult{Contract: contract}}
}

// NewRedirectResult builds a redirect-variant SubmitResult.
func NewRedirectResult(url, method string) SubmitResult {
	return SubmitResult{Kind: SubmitResultRedirect, Redirect: &RedirectResult{URL: url, Method: method}}
}

// NewErrorResult builds an error-variant SubmitResult.
func NewErrorResult(code, message string) SubmitResult {
	return SubmitResult{Kind: SubmitResultError, Error: &ErrorResult{Code: code, Message: message}}
}

// Validate checks that the variant set matches the discriminator.
func (r SubmitResult) Validate() error {
	switch r.Kind {
	case SubmitResultContinue:
		if r.Continue == nil {
			return fmt.Errorf("submit result kind %q has no continue payload", r.Kind)
		}
	case SubmitResultRedirect:
		if r.Redirect == nil {
			return fmt.Errorf("submit result kind %q has no redirect payload", r.Kind)
		}
	case SubmitResultError:
		if r.Error == nil {
			return fmt.Errorf("submit result kind %q has no error payload", r.Kind)
		}
	default:
		return fmt.Errorf("unknown submit result kind %q", r.Kind)
	}
	return nil
}
