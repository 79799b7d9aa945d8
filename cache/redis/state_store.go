package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/flow/domain"
)

// expiredRetention mirrors the in-memory store: the key outlives ExpiresAt by
// a grace period so the engine can distinguish expired from not-found.
const expiredRetention = time.Minute

// StateStore implements domain.RuntimeStateRepository using Redis. Records
// are stored as JSON under a prefixed key with a TTL tied to the session's
// expiry.
type StateStore struct {
	client *redis.Client
	prefix string // Optional prefix for keys
}

// NewStateStore creates a new [StateStore] instance.
func NewStateStore(client *redis.Client, prefix string) *StateStore {
	return &StateStore{
		client: client,
		prefix: prefix,
	}
}

// redisKey returns the Redis key for a given session.
func (r *StateStore) redisKey(sessionID string) string {
	return fmt.Sprintf("%s:flowstate:%s", r.prefix, sessionID)
}

// Get implements domain.RuntimeStateRepository.Get.
func (r *StateStore) Get(ctx context.Context, sessionID string) (*domain.RuntimeState, error) {
	data, err := r.client.Get(ctx, r.redisKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var state domain.RuntimeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Put implements domain.RuntimeStateRepository.Put.
func (r *StateStore) Put(ctx context.Context, state *domain.RuntimeState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ttl := time.Until(state.ExpiresAt) + expiredRetention
	if ttl <= 0 {
		ttl = expiredRetention
	}
	if err := r.client.Set(ctx, r.redisKey(state.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}
	return nil
}

// Delete implements domain.RuntimeStateRepository.Delete.
func (r *StateStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state from Redis: %w", err)
	}
	return nil
}

var _ domain.RuntimeStateRepository = (*StateStore)(nil)
