// Package redis stores sessions as JSON documents in Redis with a sliding TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

const keyPrefix = "fitness-coach:session:"

// Connect creates a client and verifies the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// createAttempts bounds GetOrCreate when a key expires between SETNX and GETEX.
const createAttempts = 3

// commands is the subset of the client the repository uses.
type commands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	GetEx(ctx context.Context, key string, expiration time.Duration) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

type sessionRepository struct {
	client commands
	ttl    time.Duration // Sliding expiry, refreshed on every access through GetOrCreate and Save
}

// NewSessionRepository stores each session under its own key. The TTL slides on
// GetOrCreate and Save.
func NewSessionRepository(client goredis.UniversalClient, ttl time.Duration) repository.SessionRepository {
	return &sessionRepository{client: client, ttl: ttl}
}

func key(id string) string {
	return keyPrefix + id
}

// GetOrCreate loads the session and extends its TTL, creating it when absent.
func (r *sessionRepository) GetOrCreate(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if id == "" {
		id = repository.NewSessionID()
	}
	fresh := domain.NewSessionRecord(id)
	payload, err := json.Marshal(fresh)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		// Create only if absent
		created, err := r.client.SetNX(ctx, key(id), payload, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("creating session %s: %w", id, err)
		}
		if created {
			return fresh, nil
		}

		// Existing key: read it and slide the expiry in one command
		raw, err := r.client.GetEx(ctx, key(id), r.ttl).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue // expired in between, try to create again
		}
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", id, err)
		}
		return decode(id, raw)
	}
	return nil, fmt.Errorf("session %s kept expiring during creation: %w", id, repository.ErrUpdateFailed)
}

// Get reads the session without touching its TTL.
func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	raw, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return decode(id, raw)
}

func decode(id string, raw []byte) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &rec, nil
}

func (r *sessionRepository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	if rec == nil || rec.ID == "" {
		return repository.ErrUpdateFailed
	}
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(rec.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", rec.ID, err)
	}
	return nil
}
