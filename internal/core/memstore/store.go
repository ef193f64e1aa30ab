// Package memstore keeps aggregates in process memory for the "memory" store driver.
//
// Writers are serialised per key. Readers load the last published snapshot and
// never wait on a writer, so a slow transition on one order cannot stall a
// customer polling its tracking page.
package memstore

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotFound is returned when no aggregate exists for a key.
	ErrNotFound = errors.New("memstore: not found")
	// ErrExists is returned by Insert when the key is taken.
	ErrExists = errors.New("memstore: already exists")
)

type entry[T any] struct {
	write sync.Mutex
	snap  atomic.Pointer[T]
}

// Store maps keys to aggregates of type T.
type Store[T any] struct {
	entries sync.Map // string -> *entry[T]
	clone   func(T) T
}

// New returns an empty Store. clone must deep-copy T so snapshots stay immutable.
func New[T any](clone func(T) T) *Store[T] {
	return &Store[T]{clone: clone}
}

// Insert adds v under key.
func (s *Store[T]) Insert(key string, v T) error {
	e := &entry[T]{}
	c := s.clone(v)
	e.snap.Store(&c)
	if _, loaded := s.entries.LoadOrStore(key, e); loaded {
		return ErrExists
	}
	return nil
}

// Get returns a private copy of the aggregate stored under key.
func (s *Store[T]) Get(key string) (T, error) {
	raw, ok := s.entries.Load(key)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return s.clone(*raw.(*entry[T]).snap.Load()), nil
}

// Update applies fn to a copy of the aggregate and publishes the result atomically.
// If fn fails nothing is published. Concurrent updates of one key run one at a time.
func (s *Store[T]) Update(key string, fn func(*T) error) (T, error) {
	var zero T
	raw, ok := s.entries.Load(key)
	if !ok {
		return zero, ErrNotFound
	}
	e := raw.(*entry[T])

	e.write.Lock()
	defer e.write.Unlock()

	next := s.clone(*e.snap.Load())
	if err := fn(&next); err != nil {
		return zero, err
	}
	e.snap.Store(&next)

	return s.clone(next), nil
}

// Snapshot returns copies of every aggregate matching keep. Order is unspecified.
func (s *Store[T]) Snapshot(keep func(T) bool) []T {
	var out []T
	s.entries.Range(func(_, raw any) bool {
		v := *raw.(*entry[T]).snap.Load()
		if keep == nil || keep(v) {
			out = append(out, s.clone(v))
		}
		return true
	})
	return out
}

// Len counts stored aggregates.
func (s *Store[T]) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
