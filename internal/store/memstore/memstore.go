// Package memstore implements store.Store in process memory. It backs unit
// tests and the dev server's "memory" driver.
package memstore

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// Store keeps entries in a mutex-guarded map. Clones on the way in and out
// keep callers from sharing slices with the map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*model.Entry
	closed  bool
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]*model.Entry)}
}

func (s *Store) Get(_ context.Context, id string) (*model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, model.ErrClosed
	}
	return s.entries[id].Clone(), nil
}

func (s *Store) Put(_ context.Context, e *model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ErrClosed
	}
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ErrClosed
	}
	delete(s.entries, id)
	return nil
}

// All yields entries in ascending id order so repeat iterations over an
// unchanged store agree.
func (s *Store) All(_ context.Context) iter.Seq2[*model.Entry, error] {
	return func(yield func(*model.Entry, error) bool) {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			yield(nil, model.ErrClosed)
			return
		}
		snapshot := make([]*model.Entry, 0, len(s.entries))
		for _, e := range s.entries {
			snapshot = append(snapshot, e.Clone())
		}
		s.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
		for _, e := range snapshot {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
