package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/flow/domain"
)

// expiredRetentionSeconds delays the TTL index behind ExpiresAt so the engine
// can answer expired (not not-found) before Mongo drops the document. Mongo's
// TTL monitor runs every 60s anyway, so precision is not expected here.
const expiredRetentionSeconds = 60

// RuntimeStateRepositoryMongo implements domain.RuntimeStateRepository using
// MongoDB. It is the durable backend for deployments where sessions must
// survive process restarts or migrate between processes.
type RuntimeStateRepositoryMongo struct {
	collection *mongo.Collection
}

// NewRuntimeStateRepository creates a new RuntimeStateRepositoryMongo.
// It also ensures that necessary indexes are created on the collection.
func NewRuntimeStateRepository(ctx context.Context, db *mongo.Database) (*RuntimeStateRepositoryMongo, error) {
	repo := &RuntimeStateRepositoryMongo{
		collection: db.Collection(RuntimeStateCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(expiredRetentionSeconds), // TTL index for automatic cleanup
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "client_id", Value: 1}},
			Options: options.Index(),
		},
	}

	opts := options.CreateIndexes()
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels, opts); err != nil {
		// Index creation failing usually means they already exist with other
		// options; the repository still works without them.
		log.Warn().Err(err).Msg("Issue creating indexes for flow_runtime_state collection")
	} else {
		log.Info().Msg("Indexes for flow_runtime_state collection ensured.")
	}

	return repo, nil
}

// Get retrieves a session's runtime state by session id.
func (r *RuntimeStateRepositoryMongo) Get(ctx context.Context, sessionID string) (*domain.RuntimeState, error) {
	var state domain.RuntimeState
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Error getting runtime state from MongoDB")
		return nil, fmt.Errorf("failed to get runtime state: %w", err)
	}
	return &state, nil
}

// Put upserts a session's runtime state.
func (r *RuntimeStateRepositoryMongo) Put(ctx context.Context, state *domain.RuntimeState) error {
	if state.SessionID == "" {
		return errors.New("session ID is required")
	}
	filter := bson.M{"_id": state.SessionID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, state, opts); err != nil {
		log.Error().Err(err).Str("session_id", state.SessionID).Msg("Error storing runtime state in MongoDB")
		return fmt.Errorf("failed to store runtime state: %w", err)
	}
	return nil
}

// Delete removes a session's runtime state. Deleting a missing record is a
// no-op, which keeps Cancel idempotent.
func (r *RuntimeStateRepositoryMongo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Error deleting runtime state from MongoDB")
		return fmt.Errorf("failed to delete runtime state: %w", err)
	}
	return nil
}

// Ensure interface compliance
var _ domain.RuntimeStateRepository = (*RuntimeStateRepositoryMongo)(nil)
