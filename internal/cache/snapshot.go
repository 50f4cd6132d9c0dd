package cache

import (
	"sync"
	"time"
)

// Snapshot is a thread-safe holder for one value that goes stale after a
// TTL. The server keeps the last loaded settings in one so stylesheet
// requests do not hit SQLite each time; writes call Invalidate.
type Snapshot[V any] struct {
	mu        sync.RWMutex
	value     V
	timestamp time.Time
	ttl       time.Duration
}

// NewSnapshot creates an empty, expired snapshot.
func NewSnapshot[V any](ttl time.Duration) *Snapshot[V] {
	return &Snapshot[V]{ttl: ttl}
}

// Get returns the value and ok=true while the snapshot is fresh.
func (s *Snapshot[V]) Get() (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.expiredLocked() {
		var zero V
		return zero, false
	}
	return s.value, true
}

// Set stores a value and restarts the TTL.
func (s *Snapshot[V]) Set(value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.timestamp = time.Now()
}

// Load returns the fresh value, or calls fill, stores its result and
// returns it. A fill error leaves the snapshot untouched.
func (s *Snapshot[V]) Load(fill func() (V, error)) (V, error) {
	if v, ok := s.Get(); ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		var zero V
		return zero, err
	}
	s.Set(v)
	return v, nil
}

// IsExpired reports whether the snapshot must be refilled.
// A snapshot that was never set is expired.
func (s *Snapshot[V]) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiredLocked()
}

// expiredLocked must be called with at least a read lock held.
func (s *Snapshot[V]) expiredLocked() bool {
	return s.timestamp.IsZero() || time.Since(s.timestamp) >= s.ttl
}

// Invalidate drops the value and marks the snapshot expired.
func (s *Snapshot[V]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	s.value = zero
	s.timestamp = time.Time{}
}
