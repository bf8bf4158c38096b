package session

import (
	"net"
	"sync"
)

// Registry is the concurrency-safe directory of live sessions, keyed by the
// client's source address and port. The registry lock guards only map
// membership; each session guards its own contents. A key maps to at most
// one session at a time: once removed, a new packet from the same key
// starts a fresh session with no memory of the old one.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for key, creating one from addr when none
// exists. The second return reports whether a new session was created.
func (r *Registry) GetOrCreate(key string, addr *net.UDPAddr) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[key]; ok {
		return existing, false
	}

	s := New(key, addr)
	r.sessions[key] = s
	return s, true
}

// Get retrieves an existing session
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	return s, ok
}

// Remove deletes the session for key and reports whether one was present
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[key]; !ok {
		return false
	}
	delete(r.sessions, key)
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the current sessions as a slice the caller can iterate
// without holding the registry lock
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Clear drops every session and returns how many were removed
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.sessions)
	r.sessions = make(map[string]*Session)
	return n
}
