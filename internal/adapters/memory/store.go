// Package memory provides in-memory implementations of the storage ports.
// The daemon uses Session for the per-session guard flag; tests use both
// stores as fast fakes with the same contract as the real backends.
package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// Store is an in-memory key-value store.
type Store struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{values: make(map[string]json.RawMessage)}
}

// Get returns the stored values for the requested keys. Absent keys are
// missing from the result.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

// Set stores all given values.
func (s *Store) Set(ctx context.Context, values map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.values[k] = append(json.RawMessage(nil), v...)
	}
	return nil
}

// Session is an in-memory session store. Its lifetime is the process, which
// matches one attach to a browser session; restarting against the same
// browser session is covered by the orchestrator re-checking the guard.
type Session struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewSession creates an empty session store.
func NewSession() *Session {
	return &Session{flags: make(map[string]bool)}
}

// GetBool reads a session flag; absent flags read as false.
func (s *Session) GetBool(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[key], nil
}

// SetBool writes a session flag.
func (s *Session) SetBool(ctx context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	return nil
}
