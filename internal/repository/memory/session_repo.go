// Package memory is an in-process session store with TTL eviction.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

const lockStripes = 64 // Per-id critical sections hash onto these

// sessionRepository implements repository.SessionRepository in memory.
type sessionRepository struct {
	cache *expirable.LRU[string, *domain.SessionRecord] // Stores private copies only
	locks [lockStripes]sync.Mutex
}

// NewSessionRepository returns a store holding at most maxEntries sessions, each
// expiring ttl after its last write. maxEntries <= 0 means unbounded.
func NewSessionRepository(maxEntries int, ttl time.Duration) repository.SessionRepository {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &sessionRepository{
		cache: expirable.NewLRU[string, *domain.SessionRecord](maxEntries, nil, ttl),
	}
}

// lockFor returns the stripe guarding id.
func (r *sessionRepository) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.locks[h.Sum32()%lockStripes]
}

// GetOrCreate returns a copy of the stored record, creating it under the id's lock.
func (r *sessionRepository) GetOrCreate(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		id = repository.NewSessionID()
	}

	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if rec, ok := r.cache.Get(id); ok {
		return rec.Clone(), nil
	}

	// Not cached or expired
	rec := domain.NewSessionRecord(id)
	r.cache.Add(id, rec)
	return rec.Clone(), nil
}

// Get returns a copy of the stored record.
func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := r.cache.Get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.Clone(), nil
}

// Save stores a copy of rec and restarts its TTL.
func (r *sessionRepository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" {
		return repository.ErrUpdateFailed
	}
	// Caller keeps its record; the cache gets its own
	stored := rec.Clone()
	stored.UpdatedAt = time.Now().UTC()
	rec.UpdatedAt = stored.UpdatedAt

	mu := r.lockFor(rec.ID)
	mu.Lock()
	r.cache.Add(rec.ID, stored)
	mu.Unlock()
	return nil
}
