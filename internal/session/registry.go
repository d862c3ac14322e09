package session

import (
	"sync"
	"time"

	"github.com/classlight/classlight-lms/internal/apperr"
)

// Registry holds live sessions for the HTTP surface. Sessions are
// in-memory only; a finalized or expired session is dropped and an
// abandoned one simply disappears with no side effects.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      Clock
}

type entry struct {
	s      *Session
	userID string
	seen   time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *Registry) Add(s *Session, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.sessions[s.ID()] = &entry{s: s, userID: userID, seen: r.now()}
}

// Get returns the caller's session. A foreign or unknown id reads the
// same: not found.
func (r *Registry) Get(id, userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.userID != userID {
		return nil, apperr.NotFoundf("session %s not found", id)
	}
	e.seen = r.now()
	return e.s, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.sessions {
		if e.seen.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
