package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryRepo is an in-memory implementation of Repo. It is the default
// store when no Redis URL is configured.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

// Upsert creates or updates a session
func (r *InMemoryRepo) Upsert(_ context.Context, sessionID string, session Session) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = session
	return nil
}

// Get retrieves a session by ID
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}

	return session, nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// DeleteExpired removes sessions created before cutoff
func (r *InMemoryRepo) DeleteExpired(_ context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
	return nil
}

var _ Repo = (*InMemoryRepo)(nil)
