// Package store defines the persistence contract for diary entries.
// Implementations live under internal/store/<driver>/ (pebble, sqlite,
// postgres, memory) and must pass the storetest conformance suite.
package store

import (
	"context"
	"iter"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// Store is a flat key-value accessor over entries. It knows nothing about
// ordering or search; those live in the index, which is derived from All.
type Store interface {
	// Get returns the stored entry or (nil, nil) when the id is absent.
	Get(ctx context.Context, id string) (*model.Entry, error)

	// Put creates or replaces the entry under e.ID.
	Put(ctx context.Context, e *model.Entry) error

	// Delete removes the entry. Deleting an absent id succeeds.
	Delete(ctx context.Context, id string) error

	// All yields every stored entry. Iteration order is driver-defined but
	// stable for an unchanged store.
	All(ctx context.Context) iter.Seq2[*model.Entry, error]

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases driver resources. The store is unusable afterwards.
	Close() error
}
