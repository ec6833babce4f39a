// Package memory implements an in-memory cache store for testing and
// development.
package memory

import (
	"context"
	"sync"
	"time"
)

// entry is one cached value with an optional expiry
type entry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

// Store implements an in-memory cache
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewStore creates a new in-memory cache store
func NewStore() *Store {
	return &Store{data: make(map[string]entry)}
}

// Save writes value under key
func (s *Store) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

// Get returns the value under key, if present and not expired.
// Not part of the cache.Store contract; used by tests and fixtures.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Len returns the number of live entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	now := time.Now()
	for _, e := range s.data {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Purge drops every entry
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]entry)
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }
