// Package apisession keeps per-client state for the HTTP API, keyed by a
// client identifier such as the remote address.
package apisession

import (
	"sync"
	"time"
)

// cleanupInterval is how often Get triggers lazy eviction of idle entries.
const cleanupInterval = 100

type entry[T any] struct {
	value      *T
	lastAccess time.Time
}

// Store is a typed, thread-safe map from client ID to state. State is
// created on first access and evicted after ttl without access.
type Store[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	ttl      time.Duration
	newFn    func() *T
	now      func() time.Time
	getCalls int
}

// New creates a Store. newFn initialises the state of an unseen client.
func New[T any](ttl time.Duration, newFn func() *T) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		newFn:   newFn,
		now:     time.Now,
	}
}

// Get returns the state for id, creating it if needed, and refreshes its
// last access time.
func (s *Store[T]) Get(id string) *T {
	v, _ := s.GetOrCreate(id)
	return v
}

// GetOrCreate is Get that also reports whether the state was just created.
func (s *Store[T]) GetOrCreate(id string) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.getCalls%cleanupInterval == 0 {
		s.cleanupLocked()
	}

	e, ok := s.entries[id]
	if !ok {
		e = &entry[T]{value: s.newFn()}
		s.entries[id] = e
	}
	e.lastAccess = s.now()
	return e.value, !ok
}

// Cleanup evicts all entries idle longer than the TTL and returns how many
// were removed.
func (s *Store[T]) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked()
}

func (s *Store[T]) cleanupLocked() int {
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked clients.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
