package session

import (
	"sync"
	"time"
)

// Store keeps per-session server-side state, such as a report controller,
// keyed by session id. Entries idle for longer than the TTL are dropped.
type Store[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*storeEntry[T]
}

type storeEntry[T any] struct {
	value    T
	lastSeen time.Time
}

func NewStore[T any](ttl time.Duration) *Store[T] {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store[T]{ttl: ttl, now: time.Now, entries: make(map[string]*storeEntry[T])}
}

// Get returns the value for id, creating it with create when missing or
// expired.
func (s *Store[T]) Get(id string, create func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[id]; ok && now.Sub(e.lastSeen) <= s.ttl {
		e.lastSeen = now
		return e.value
	}
	e := &storeEntry[T]{value: create(), lastSeen: now}
	s.entries[id] = e
	return e.value
}

// Peek returns the value for id without creating or touching it.
func (s *Store[T]) Peek(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || s.now().Sub(e.lastSeen) > s.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
