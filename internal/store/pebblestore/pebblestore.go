// Package pebblestore implements store.Store on a local Pebble database.
// This is the default driver: a single-writer embedded KV fits a per-user
// diary, and the index layer never needs ordered keys beyond a prefix scan.
package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// Entry keys share a prefix so All can bound its iterator and leave room
// for future record types in the same database.
const keyPrefix = "e/"

// keyUpperBound is the exclusive end of the entry keyspace ('0' follows '/').
var keyUpperBound = []byte("e0")

// Store wraps a Pebble DB with a small LRU over decoded entries. The cache
// is invalidated, not refreshed, on writes.
type Store struct {
	db    *pebble.DB
	cache *lru.Cache[string, *model.Entry]
	log   zerolog.Logger
}

// Open creates or reopens the database under dir.
func Open(dir string, cacheSize int, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("pebble: create dir %s: %w", dir, err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", dir, err)
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *model.Entry](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pebble: cache: %w", err)
	}
	return &Store{db: db, cache: cache, log: log}, nil
}

func entryKey(id string) []byte { return []byte(keyPrefix + id) }

func (s *Store) Get(_ context.Context, id string) (*model.Entry, error) {
	if e, ok := s.cache.Get(id); ok {
		return e.Clone(), nil
	}
	val, closer, err := s.db.Get(entryKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pebble: get %s: %w", id, err)
	}
	defer closer.Close()

	var e model.Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, fmt.Errorf("pebble: decode %s: %w", id, err)
	}
	s.cache.Add(id, e.Clone())
	return &e, nil
}

func (s *Store) Put(_ context.Context, e *model.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("pebble: encode %s: %w", e.ID, err)
	}
	if err := s.db.Set(entryKey(e.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble: set %s: %w", e.ID, err)
	}
	s.cache.Remove(e.ID)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	// Pebble deletes are blind writes, so absent ids succeed as required.
	if err := s.db.Delete(entryKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("pebble: delete %s: %w", id, err)
	}
	s.cache.Remove(id)
	return nil
}

// All scans the entry prefix. Pebble iterates keys in order, so the yield
// order is ascending id.
func (s *Store) All(_ context.Context) iter.Seq2[*model.Entry, error] {
	return func(yield func(*model.Entry, error) bool) {
		it, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: []byte(keyPrefix),
			UpperBound: keyUpperBound,
		})
		if err != nil {
			yield(nil, fmt.Errorf("pebble: iterator: %w", err))
			return
		}
		defer it.Close()

		for valid := it.First(); valid; valid = it.Next() {
			var e model.Entry
			if err := json.Unmarshal(it.Value(), &e); err != nil {
				yield(nil, fmt.Errorf("pebble: decode %s: %w", it.Key(), err))
				return
			}
			if !yield(&e, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(nil, fmt.Errorf("pebble: scan: %w", err))
		}
	}
}

// Ping issues a read; ErrNotFound still proves the database answers.
func (s *Store) Ping(_ context.Context) error {
	_, closer, err := s.db.Get([]byte("~ping"))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pebble: ping: %w", err)
	}
	closer.Close()
	return nil
}

func (s *Store) Close() error {
	s.cache.Purge()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("pebble: close: %w", err)
	}
	return nil
}
