// Package storetest holds the compliance suite every store driver must
// pass. Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
	"github.com/tsuzuri-app/tsuzuri/internal/store"
)

// Run exercises the Store contract against an implementation.
// makeStore must return a clean, isolated store; cleanup goes through
// t.Cleanup inside makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Ping
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	// Get on an absent id is success with a nil entry, never an error.
	if got, err := s.Get(ctx, "missing-"+uuid.NewString()); err != nil || got != nil {
		t.Fatalf("Get absent: got=%v err=%v", got, err)
	}

	// Put / Get roundtrip
	loc := "Yoyogi Park"
	e1 := &model.Entry{
		ID:        uuid.NewString(),
		Date:      time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC),
		Title:     "hanami",
		Content:   "picnic under the trees",
		PhotoIDs:  []string{"p1", "p2"},
		Location:  &loc,
		Tags:      []string{"spring"},
		CreatedAt: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := s.Put(ctx, e1); err != nil {
		t.Fatalf("Put e1: %v", err)
	}
	got, err := s.Get(ctx, e1.ID)
	if err != nil || got == nil {
		t.Fatalf("Get e1: got=%v err=%v", got, err)
	}
	if got.Title != "hanami" || len(got.PhotoIDs) != 2 || got.Location == nil || *got.Location != loc {
		t.Fatalf("Get e1: fields lost: %+v", got)
	}
	if !got.Date.Equal(e1.Date) {
		t.Fatalf("Get e1: date drift: want %v got %v", e1.Date, got.Date)
	}

	// Put overwrites in place
	e1b := got.Clone()
	e1b.Title = "hanami (edited)"
	e1b.PhotoIDs = []string{"p2", "p3"}
	if err := s.Put(ctx, e1b); err != nil {
		t.Fatalf("Put e1b: %v", err)
	}
	if got, err = s.Get(ctx, e1.ID); err != nil || got == nil || got.Title != "hanami (edited)" {
		t.Fatalf("Get after overwrite: got=%+v err=%v", got, err)
	}

	// All yields every stored entry exactly once
	e2 := &model.Entry{ID: uuid.NewString(), Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Title: "second"}
	if err := s.Put(ctx, e2); err != nil {
		t.Fatalf("Put e2: %v", err)
	}
	seen := map[string]int{}
	for e, err := range s.All(ctx) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		seen[e.ID]++
	}
	if seen[e1.ID] != 1 || seen[e2.ID] != 1 || len(seen) != 2 {
		t.Fatalf("All: want both entries once, got %v", seen)
	}

	// All respects early break
	n := 0
	for _, err := range s.All(ctx) {
		if err != nil {
			t.Fatalf("All(break): %v", err)
		}
		n++
		break
	}
	if n != 1 {
		t.Fatalf("All(break): yielded %d", n)
	}

	// Delete removes, and deleting again still succeeds
	if err := s.Delete(ctx, e2.ID); err != nil {
		t.Fatalf("Delete e2: %v", err)
	}
	if got, err := s.Get(ctx, e2.ID); err != nil || got != nil {
		t.Fatalf("Get after delete: got=%v err=%v", got, err)
	}
	if err := s.Delete(ctx, e2.ID); err != nil {
		t.Fatalf("Delete e2 again: %v", err)
	}
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}

	// Stored values must not alias caller slices
	e3 := &model.Entry{ID: uuid.NewString(), Date: time.Now().UTC(), PhotoIDs: []string{"px"}}
	if err := s.Put(ctx, e3); err != nil {
		t.Fatalf("Put e3: %v", err)
	}
	e3.PhotoIDs[0] = "mutated"
	if got, err := s.Get(ctx, e3.ID); err != nil || got == nil || got.PhotoIDs[0] != "px" {
		t.Fatalf("Get e3: caller mutation leaked into store: got=%+v err=%v", got, err)
	}
}
