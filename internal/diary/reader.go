package diary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/index"
	"github.com/tsuzuri-app/tsuzuri/internal/model"
	"github.com/tsuzuri-app/tsuzuri/internal/store"
)

// Reader serves queries from the index's id order plus point reads of the
// store. It never mutates either; ids the index knows but the store has
// lost are skipped silently.
type Reader struct {
	store store.Store
	idx   *index.Manager
	log   zerolog.Logger
	ready func(ctx context.Context) error
}

// NewReader constructs the query service. ready, when non-nil, runs before
// every query; the boot path wires a once-guarded index warm-up there so a
// query can never observe the pre-build index.
func NewReader(s store.Store, idx *index.Manager, ready func(ctx context.Context) error, log zerolog.Logger) *Reader {
	return &Reader{
		store: s,
		idx:   idx,
		log:   log.With().Str("component", "diary-reader").Logger(),
		ready: ready,
	}
}

func (r *Reader) ensure(ctx context.Context) error {
	if r.ready == nil {
		return nil
	}
	if err := r.ready(ctx); err != nil {
		return fmt.Errorf("reader warm-up: %w", err)
	}
	return nil
}

// SortedEntries returns all entries ordered by date, newest first when
// descending is true.
func (r *Reader) SortedEntries(ctx context.Context, descending bool) ([]*model.Entry, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	ids := r.idx.IDs()
	if !descending {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	return r.fetch(ctx, ids)
}

// Entry returns a single entry, or (nil, nil) when absent.
func (r *Reader) Entry(ctx context.Context, id string) (*model.Entry, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	e, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, model.StorageError("read entry", err)
	}
	return e, nil
}

// FilteredEntries returns every entry matching the filter in date
// descending order. Search text is tested against the index before the
// entry is loaded, so non-matching entries cost no store read.
func (r *Reader) FilteredEntries(ctx context.Context, f model.EntryFilter) ([]*model.Entry, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.collect(ctx, f, 0, -1)
}

// FilteredEntriesPage returns the page of matches starting offset matches
// in, at most limit long. A non-positive limit or an offset past the last
// match yields an empty slice, not an error.
func (r *Reader) FilteredEntriesPage(ctx context.Context, f model.EntryFilter, offset, limit int) ([]*model.Entry, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*model.Entry{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	return r.collect(ctx, f, offset, limit)
}

// EntriesByPhotoDate returns the entries whose date falls on the same UTC
// calendar day as date, in global order.
func (r *Reader) EntriesByPhotoDate(ctx context.Context, date time.Time) ([]*model.Entry, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.fetch(ctx, r.idx.IDsOn(date))
}

// EntryByPhotoID returns the first entry in global order referencing the
// photo, or (nil, nil) when no entry does.
func (r *Reader) EntryByPhotoID(ctx context.Context, photoID string) (*model.Entry, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if photoID == "" {
		return nil, nil
	}
	for _, id := range r.idx.IDs() {
		e, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, model.StorageError("read entry", err)
		}
		if e == nil {
			continue
		}
		if e.HasPhoto(photoID) {
			return e, nil
		}
	}
	return nil, nil
}

// collect walks the global order applying the filter; offset counts
// matches, limit < 0 means unbounded.
func (r *Reader) collect(ctx context.Context, f model.EntryFilter, offset, limit int) ([]*model.Entry, error) {
	needle := index.Fold(f.SearchText)
	out := []*model.Entry{}
	matched := 0
	for _, id := range r.idx.IDs() {
		if needle != "" {
			text, ok := r.idx.SearchText(id)
			if !ok || !strings.Contains(text, needle) {
				continue
			}
		}
		e, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, model.StorageError("read entry", err)
		}
		if e == nil {
			continue
		}
		if !f.Matches(e) {
			continue
		}
		matched++
		if matched <= offset {
			continue
		}
		out = append(out, e)
		if limit >= 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// fetch loads ids in order, dropping ones the store no longer has.
func (r *Reader) fetch(ctx context.Context, ids []string) ([]*model.Entry, error) {
	out := make([]*model.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, model.StorageError("read entry", err)
		}
		if e == nil {
			r.log.Debug().Str("entry_id", id).Msg("indexed id missing from store; skipping")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
