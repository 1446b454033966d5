package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

const sessionCollectionName = "sessions" // Documents keyed by session id in _id

// mongoSessionRepository implements repository.SessionRepository using MongoDB.
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a session store on the sessions collection of db.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// GetOrCreate upserts a fresh record so that concurrent callers converge on one document.
func (r *mongoSessionRepository) GetOrCreate(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if id == "" {
		id = repository.NewSessionID()
	}
	fresh := domain.NewSessionRecord(id)

	// Only an insert writes fields; an existing document is returned untouched
	update := bson.M{"$setOnInsert": bson.M{
		"stage":     fresh.Stage,
		"missing":   fresh.Missing,
		"completed": false,
		"createdAt": fresh.CreatedAt,
		"updatedAt": fresh.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var rec domain.SessionRecord
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&rec)
	if err != nil {
		return nil, fmt.Errorf("get or create session %s: %w", id, err)
	}
	return &rec, nil
}

// Get retrieves a session by its ID.
func (r *mongoSessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound // Map driver error to repository error
		}
		return nil, err
	}
	return &rec, nil
}

// Save replaces the stored document (last write wins).
func (r *mongoSessionRepository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	if rec == nil || rec.ID == "" {
		return repository.ErrUpdateFailed
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", rec.ID, err)
	}
	return nil
}

// EnsureSessionIndexes creates the TTL index that expires idle sessions.
func EnsureSessionIndexes(ctx context.Context, db *mongo.Database, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Sessions never expire
	}
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetName("session_ttl").SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	_, err := db.Collection(sessionCollectionName).Indexes().CreateOne(ctx, index)
	return err
}
