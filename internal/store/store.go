// Package store provides a small observable state container shared by the
// favorites and theme stores.
package store

import (
	"slices"
	"sync"
)

// Listener receives the new and previous state after every update.
// Listeners may read the store but must not update it.
type Listener[S any] func(state, prev S)

// Store owns a value of type S. Updates are applied atomically under the
// store lock and listeners run afterwards, in update order.
type Store[S any] struct {
	mu        sync.RWMutex
	state     S
	listeners map[int]Listener[S]
	nextID    int

	// serializes notification so listeners observe updates in order
	notifyMu sync.Mutex
}

// New creates a store holding initial.
func New[S any](initial S) *Store[S] {
	return &Store[S]{
		state:     initial,
		listeners: make(map[int]Listener[S]),
	}
}

// GetState returns the current state.
func (s *Store[S]) GetState() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState replaces the state with the result of update, which receives the
// current state. update runs under the store lock and must not call back
// into the store.
func (s *Store[S]) SetState(update func(S) S) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.state
	s.state = update(prev)
	next := s.state
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(next, prev)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[S]) Subscribe(fn Listener[S]) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store[S]) snapshotListeners() []Listener[S] {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	// registration order
	slices.Sort(ids)
	out := make([]Listener[S], len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}
