// Package diary holds the two entry-facing services: Writer owns every
// mutation of the entry store plus the derived index, Reader serves
// queries. Splitting them keeps the mutation lock out of the read path.
package diary

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/events"
	"github.com/tsuzuri-app/tsuzuri/internal/index"
	"github.com/tsuzuri-app/tsuzuri/internal/model"
	"github.com/tsuzuri-app/tsuzuri/internal/store"
)

// TagScheduler kicks off background tag generation. Scheduling must never
// block; failures surface through the runner's own logging.
type TagScheduler interface {
	Schedule(e *model.Entry)
	SchedulePastPhoto(e *model.Entry)
}

// DuplicateCheck reports entries that already cover a date. Used by the
// past-photo flow to warn about doubled days.
type DuplicateCheck func(ctx context.Context, date time.Time) ([]*model.Entry, error)

// Writer applies entry mutations in a fixed sequence: store write, index
// update, change event. A single mutex serializes mutations so observers
// see events in mutation order and the index never drifts mid-operation.
type Writer struct {
	store store.Store
	idx   *index.Manager
	bus   *events.Bus
	tags  TagScheduler
	log   zerolog.Logger

	mu       sync.Mutex
	disposed atomic.Bool
	now      func() time.Time
}

// NewWriter constructs the mutation service. sched may be nil to disable
// tag generation.
func NewWriter(s store.Store, idx *index.Manager, bus *events.Bus, sched TagScheduler, log zerolog.Logger) *Writer {
	return &Writer{
		store: s,
		idx:   idx,
		bus:   bus,
		tags:  sched,
		log:   log.With().Str("component", "diary-writer").Logger(),
		now:   time.Now,
	}
}

// Create validates the request, persists a new entry, indexes it and
// broadcasts a created event carrying the full photo set as added.
func (w *Writer) Create(ctx context.Context, req model.CreateEntryRequest) (*model.Entry, error) {
	if req.Date.IsZero() {
		return nil, model.NewValidationError("date", "required")
	}

	now := w.now().UTC()
	e := &model.Entry{
		ID:        uuid.NewString(),
		Date:      req.Date,
		Title:     req.Title,
		Content:   req.Content,
		PhotoIDs:  model.DedupPhotoIDs(req.PhotoIDs),
		Tags:      append([]string(nil), req.Tags...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Location != nil {
		loc := *req.Location
		e.Location = &loc
	}

	if err := w.commit(ctx, e, nil, model.ChangeCreated); err != nil {
		return nil, err
	}
	w.scheduleTags(e, false)
	return e, nil
}

// CreateForPastPhoto creates a backdated entry for an old photo. Existing
// entries on that day only produce a warning; doubled days are allowed.
func (w *Writer) CreateForPastPhoto(ctx context.Context, req model.PastPhotoEntryRequest, dup DuplicateCheck) (*model.Entry, error) {
	if req.PhotoID == "" {
		return nil, model.NewValidationError("photoId", "required")
	}
	if req.PhotoDate.IsZero() {
		return nil, model.NewValidationError("photoDate", "required")
	}

	if dup != nil {
		existing, err := dup(ctx, req.PhotoDate)
		switch {
		case err != nil:
			w.log.Warn().Err(err).Msg("duplicate check failed; creating anyway")
		case len(existing) > 0:
			w.log.Warn().
				Str("photo_id", req.PhotoID).
				Time("photo_date", req.PhotoDate).
				Int("existing", len(existing)).
				Msg("date already has entries; creating another")
		}
	}

	now := w.now().UTC()
	e := &model.Entry{
		ID:        uuid.NewString(),
		Date:      req.PhotoDate,
		Title:     req.Title,
		Content:   req.Content,
		PhotoIDs:  []string{req.PhotoID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Location != nil {
		loc := *req.Location
		e.Location = &loc
	}

	if err := w.commit(ctx, e, nil, model.ChangeCreated); err != nil {
		return nil, err
	}
	w.scheduleTags(e, true)
	return e, nil
}

// Update replaces the stored entry. CreatedAt is preserved from the stored
// version; the event diff is computed against it. Updating an id with no
// stored predecessor upserts, diffing against the empty photo set.
func (w *Writer) Update(ctx context.Context, e *model.Entry) (*model.Entry, error) {
	if e == nil || e.ID == "" {
		return nil, model.NewValidationError("id", "required")
	}
	if e.Date.IsZero() {
		return nil, model.NewValidationError("date", "required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev, err := w.store.Get(ctx, e.ID)
	if err != nil {
		return nil, model.StorageError("read previous entry", err)
	}

	next := e.Clone()
	next.PhotoIDs = model.DedupPhotoIDs(next.PhotoIDs)
	next.UpdatedAt = w.now().UTC()
	if prev != nil {
		next.CreatedAt = prev.CreatedAt
	} else if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}

	if err := w.store.Put(ctx, next); err != nil {
		return nil, model.StorageError("put entry", err)
	}
	w.idx.Update(next)

	var prevPhotos []string
	if prev != nil {
		prevPhotos = prev.PhotoIDs
	}
	added, removed := model.DiffPhotoIDs(prevPhotos, next.PhotoIDs)
	w.publish(model.ChangeEvent{
		Type:            model.ChangeUpdated,
		EntryID:         next.ID,
		AddedPhotoIDs:   added,
		RemovedPhotoIDs: removed,
	})
	return next, nil
}

// Delete removes the entry. Deleting an absent id succeeds without
// touching the store, the index or the bus.
func (w *Writer) Delete(ctx context.Context, id string) error {
	if id == "" {
		return model.NewValidationError("id", "required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev, err := w.store.Get(ctx, id)
	if err != nil {
		return model.StorageError("read entry", err)
	}
	if prev == nil {
		return nil
	}

	if err := w.store.Delete(ctx, id); err != nil {
		return model.StorageError("delete entry", err)
	}
	w.idx.Remove(id)

	_, removed := model.DiffPhotoIDs(prev.PhotoIDs, nil)
	w.publish(model.ChangeEvent{
		Type:            model.ChangeDeleted,
		EntryID:         id,
		RemovedPhotoIDs: removed,
	})
	return nil
}

// ApplyGeneratedTags stores tags produced by the background runner and
// refreshes the entry's search text. An entry deleted since generation
// started is dropped silently.
func (w *Writer) ApplyGeneratedTags(ctx context.Context, id string, generated []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur, err := w.store.Get(ctx, id)
	if err != nil {
		return model.StorageError("read entry", err)
	}
	if cur == nil {
		w.log.Debug().Str("entry_id", id).Msg("entry gone before tags arrived; dropping")
		return nil
	}

	now := w.now().UTC()
	cur.CachedTags = append([]string(nil), generated...)
	cur.TagsGeneratedAt = &now

	if err := w.store.Put(ctx, cur); err != nil {
		return model.StorageError("put entry", err)
	}
	w.idx.Update(cur)
	w.publish(model.ChangeEvent{Type: model.ChangeUpdated, EntryID: id})
	return nil
}

// Rebuild reconstructs the index from the store. Serialized with mutations
// so it never captures a half-applied write.
func (w *Writer) Rebuild(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.idx.Build(w.store.All(ctx))
}

// Close suppresses change events and tag scheduling. Mutations themselves
// keep working; consumers that outlive their owner just stop hearing
// about them.
func (w *Writer) Close() {
	w.disposed.Store(true)
}

// commit runs the put-index-publish sequence for a brand-new entry under
// the mutation lock. A failed store write leaves the index untouched.
func (w *Writer) commit(ctx context.Context, e *model.Entry, prevPhotos []string, typ model.ChangeType) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Put(ctx, e); err != nil {
		return model.StorageError("put entry", err)
	}
	w.idx.Insert(e)

	added, removed := model.DiffPhotoIDs(prevPhotos, e.PhotoIDs)
	w.publish(model.ChangeEvent{
		Type:            typ,
		EntryID:         e.ID,
		AddedPhotoIDs:   added,
		RemovedPhotoIDs: removed,
	})
	return nil
}

func (w *Writer) publish(ev model.ChangeEvent) {
	if w.disposed.Load() || w.bus == nil {
		return
	}
	w.bus.Publish(ev)
}

func (w *Writer) scheduleTags(e *model.Entry, pastPhoto bool) {
	if w.disposed.Load() || w.tags == nil {
		return
	}
	if pastPhoto {
		w.tags.SchedulePastPhoto(e)
		return
	}
	w.tags.Schedule(e)
}
