package domain

import "errors"

var (
	// ErrSessionAlreadyExists is returned by Init when a live session is
	// already bound to the same session id.
	ErrSessionAlreadyExists = errors.New("flow session already exists")
	// ErrSessionNotFound is returned when no runtime state exists for the
	// session id.
	ErrSessionNotFound = errors.New("flow session not found")
	// ErrSessionExpired is returned when the session's TTL has elapsed but
	// cleanup has not removed the record yet.
	ErrSessionExpired = errors.New("flow session expired")
)
