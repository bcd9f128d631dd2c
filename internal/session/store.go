package session

import (
	"sync"

	"bellavista-assistant/internal/common/metrics"
)

// Store holds every live session, keyed by identifier. Sessions are created
// lazily on first reference and never expire; history is volatile and dies
// with the process. The store is injected into whatever needs it rather
// than living as package state, so tests can run independent instances.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating it with an empty history and
// ledger at the greeting stage when unseen. Creation is idempotent under
// concurrent first contact.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.sessions[id]; ok {
		return s
	}
	s = newSession(id)
	st.sessions[id] = s
	metrics.ActiveSessions.Inc()
	return s
}

// Peek returns the session for id without creating one.
func (st *Store) Peek(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
