package repository

import (
	"context"

	"github.com/google/uuid"

	"alcyxob/fitness-coach/internal/domain"
)

// --- Common Repository Errors ---
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// --- Repository Interfaces ---

// SessionRepository stores conversation sessions. Records returned by a store are
// copies: mutating them has no effect until Save is called. Concurrent saves of the
// same id are last-write-wins.
type SessionRepository interface {
	// GetOrCreate returns the record for id, creating a fresh basic-stage record when
	// id is unknown. An empty id always creates a new session with a generated id.
	GetOrCreate(ctx context.Context, id string) (*domain.SessionRecord, error)
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)
	// Save stamps UpdatedAt and stores rec. ErrUpdateFailed means rec has no id.
	Save(ctx context.Context, rec *domain.SessionRecord) error
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
