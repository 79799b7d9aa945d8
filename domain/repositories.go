package domain

import (
	"context"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=$GOFILE -destination=mocks/mock_$GOFILE -package=mock_$GOPACKAGE

// RuntimeStateRepository persists one RuntimeState record per session.
// Implementations must return ErrSessionNotFound from Get when no record
// exists, and must treat Delete of a missing record as a no-op.
//
// The repository does not enforce expiry; the engine checks ExpiresAt itself
// so that an expired-but-not-yet-cleaned record still answers with the
// correct failure. Backends may additionally drop records on their own some
// time after ExpiresAt (TTL index, key TTL, cache eviction).
type RuntimeStateRepository interface {
	Get(ctx context.Context, sessionID string) (*RuntimeState, error)
	Put(ctx context.Context, state *RuntimeState) error
	Delete(ctx context.Context, sessionID string) error
}
