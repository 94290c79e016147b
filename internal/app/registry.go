package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the sessions of all connected viewers.
type Registry struct {
	pageSize int
	ttl      time.Duration
	max      int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. Sessions idle for longer than ttl are
// removed by Sweep; ttl <= 0 keeps them forever. At most max sessions are
// held, the least recently seen one is evicted to make room; max <= 0 means
// no cap.
func NewRegistry(pageSize int, ttl time.Duration, max int) *Registry {
	return &Registry{
		pageSize: pageSize,
		ttl:      ttl,
		max:      max,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id, if any.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.Touch(time.Now())
	}
	return s, ok
}

// Create starts a new session with a random id.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.pageSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	for r.max > 0 && len(r.sessions) >= r.max {
		r.evictOldestLocked()
	}
	r.sessions[s.ID] = s
	sessionsActive.Set(float64(len(r.sessions)))
	return s
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range r.sessions {
		if seen := s.LastSeen(); oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	delete(r.sessions, oldestID)
	sessionsEvicted.Inc()
}

// GetOrCreate returns the session with id or a new one. created reports
// whether the caller must hand out the new id.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false
		}
	}
	return r.Create(), true
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle since before now-ttl and returns how many.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	sessionsActive.Set(float64(len(r.sessions)))
	return removed
}
