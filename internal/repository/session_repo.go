package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/essay-grader/internal/models"
)

// DefaultSessionTTL is how long an untouched session is retained.
const DefaultSessionTTL = 30 * time.Minute

// SessionMutator changes a session in place. Returning an error aborts the update.
type SessionMutator func(session *models.Session) error

// SessionRepository stores the current grading state of each browser session.
type SessionRepository interface {
	// Get returns the session, or a fresh idle session when none is stored.
	Get(ctx context.Context, id string) (models.Session, error)
	// Update applies mutate atomically and stores the result.
	Update(ctx context.Context, id string, mutate SessionMutator) (models.Session, error)
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionRepository constructs a process-local session store.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &memorySessionRepository{
		sessions: make(map[string]models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (models.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Session{}, ErrSessionIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id), nil
}

func (r *memorySessionRepository) Update(_ context.Context, id string, mutate SessionMutator) (models.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Session{}, ErrSessionIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.load(id)
	if err := mutate(&session); err != nil {
		return models.Session{}, err
	}

	r.sessions[id] = session
	r.evictExpired()
	return session, nil
}

func (r *memorySessionRepository) load(id string) models.Session {
	now := r.now()
	session, ok := r.sessions[id]
	if !ok || r.expired(session, now) {
		delete(r.sessions, id)
		return models.NewSession(id, now)
	}
	return session
}

func (r *memorySessionRepository) expired(session models.Session, now time.Time) bool {
	// An in-flight evaluation keeps its session alive.
	if session.Status == models.SessionStatusAnalyzing {
		return false
	}
	return now.Sub(session.UpdatedAt) > r.ttl
}

func (r *memorySessionRepository) evictExpired() {
	now := r.now()
	for id, session := range r.sessions {
		if r.expired(session, now) {
			delete(r.sessions, id)
		}
	}
}
