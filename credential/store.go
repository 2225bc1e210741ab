// Package credential holds the bearer token attached to outgoing API requests.
//
// The token is process-wide, single-writer state: it is read before every
// request, written on login and cleared on logout or on a 401 response. The
// last writer wins.
package credential

import "sync"

// Store is the credential cell.
type Store interface {
	// Get returns the stored token, or "" when none is stored.
	Get() (string, error)
	// Set replaces the stored token.
	Set(token string) error
	// Clear removes the stored token.
	Clear() error
}

// MemoryStore keeps the token in memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a MemoryStore holding token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Get implements Store.
func (s *MemoryStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Set implements Store.
func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	return s.Set("")
}
