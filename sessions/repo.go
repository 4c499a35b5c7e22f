package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session exists for the given ID.
var ErrNotFound = errors.New("session not found")

// Repo defines the interface for session storage operations.
type Repo interface {
	// Upsert creates or updates a session
	Upsert(ctx context.Context, sessionID string, session Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (Session, error)

	// Delete removes a session by ID
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions created before the given cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) error
}
