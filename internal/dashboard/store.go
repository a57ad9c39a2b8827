package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"bizportal/pkg/metrics"
)

// ErrStale is returned when a load finished after a newer one was started.
var ErrStale = errors.New("stale response discarded")

// Store is a read-through cache of server-owned data. Every load takes a
// sequence number; only the newest load may commit its result.
type Store[T any] struct {
	name string

	mu       sync.Mutex
	seq      uint64
	value    T
	loaded   bool
	loadedAt time.Time
}

func NewStore[T any](name string) *Store[T] {
	return &Store[T]{name: name}
}

// Begin reserves the next sequence number.
func (s *Store[T]) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Commit stores value if seq is still the latest dispatched load.
func (s *Store[T]) Commit(seq uint64, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		metrics.IncrementStaleResponse(s.name)
		return ErrStale
	}
	s.value = value
	s.loaded = true
	s.loadedAt = time.Now()
	return nil
}

// Latest reports whether seq is the newest dispatched load.
func (s *Store[T]) Latest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}

// Load fetches and commits in one step.
func (s *Store[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	seq := s.Begin()
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := s.Commit(seq, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Get returns the cached value and whether one has been loaded.
func (s *Store[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loaded
}

// Invalidate drops the cached value and makes any in-flight load stale.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.loaded = false
	s.seq++
}
