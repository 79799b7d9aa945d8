package errors

import "fmt"

// FlowError represents a standardized flow-engine error returned at the API
// boundary.
type FlowError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Flow error codes
const (
	SessionConflict = "session_conflict"
	SessionNotFound = "session_not_found"
	SessionExpired  = "session_expired"
	InvalidRequest  = "invalid_request"
	ServerError     = "server_error"
)

// Common error constructors
func NewSessionConflict(description string) *FlowError {
	return &FlowError{
		Code:        SessionConflict,
		Description: description,
	}
}

func NewSessionNotFound(description string) *FlowError {
	return &FlowError{
		Code:        SessionNotFound,
		Description: description,
	}
}

func NewSessionExpired(description string) *FlowError {
	return &FlowError{
		Code:        SessionExpired,
		Description: description,
	}
}

func NewInvalidRequest(description string) *FlowError {
	return &FlowError{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewServerError(description string) *FlowError {
	return &FlowError{
		Code:        ServerError,
		Description: description,
	}
}
