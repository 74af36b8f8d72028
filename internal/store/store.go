// Package store keeps the per-user pending download requests.
//
// Sessions live in memory for the lifetime of the process. A user has at most
// one pending request; a newer link replaces the older one. Reading a session
// does not consume it, so pressing an old button again downloads the same link
// again. Nothing is ever evicted.
package store

import (
	"sync"

	"github.com/vicentereig/mediabot/internal/types"
)

// SessionStore maps user ids to their pending request. All access goes through
// a single RWMutex; entries are stored by value.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]types.PendingRequest
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]types.PendingRequest),
	}
}

// Put records url as the pending request of userID, replacing any previous one.
func (s *SessionStore) Put(userID, url string, dest types.ChatRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = types.PendingRequest{
		URL:         url,
		Destination: dest,
	}
}

// Get returns the pending request of userID.
func (s *SessionStore) Get(userID string) (types.PendingRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.sessions[userID]
	return req, ok
}

// Len returns the number of users with a pending request.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
