package model

import "time"

// Entry is a single diary entry. Photo content lives elsewhere; entries
// reference photos by id only.
type Entry struct {
	ID              string     `json:"id"`
	Date            time.Time  `json:"date"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	PhotoIDs        []string   `json:"photoIds,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CachedTags      []string   `json:"cachedTags,omitempty"`
	TagsGeneratedAt *time.Time `json:"tagsGeneratedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy so callers can hold results without aliasing
// slices still owned by the store or the write path.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.PhotoIDs = append([]string(nil), e.PhotoIDs...)
	c.Tags = append([]string(nil), e.Tags...)
	c.CachedTags = append([]string(nil), e.CachedTags...)
	if e.Location != nil {
		loc := *e.Location
		c.Location = &loc
	}
	if e.TagsGeneratedAt != nil {
		at := *e.TagsGeneratedAt
		c.TagsGeneratedAt = &at
	}
	return &c
}

// HasPhoto reports whether the entry references the given photo id.
func (e *Entry) HasPhoto(photoID string) bool {
	for _, id := range e.PhotoIDs {
		if id == photoID {
			return true
		}
	}
	return false
}

// AllTags returns user tags followed by AI-generated tags.
func (e *Entry) AllTags() []string {
	out := make([]string, 0, len(e.Tags)+len(e.CachedTags))
	out = append(out, e.Tags...)
	out = append(out, e.CachedTags...)
	return out
}

// ChangeType classifies a change event.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is broadcast after an entry mutation has been persisted and
// indexed. Photo id diffs let photo-library consumers maintain
// photo-to-entry links without refetching the entry.
type ChangeEvent struct {
	Type            ChangeType `json:"type"`
	EntryID         string     `json:"entryId"`
	AddedPhotoIDs   []string   `json:"addedPhotoIds,omitempty"`
	RemovedPhotoIDs []string   `json:"removedPhotoIds,omitempty"`
}

// CreateEntryRequest carries the caller-supplied fields for a new entry.
type CreateEntryRequest struct {
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	PhotoIDs []string  `json:"photoIds,omitempty"`
	Location *string   `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// PastPhotoEntryRequest creates a backdated entry from an old photo. Date is
// the photo's capture date, not today.
type PastPhotoEntryRequest struct {
	PhotoID   string    `json:"photoId"`
	PhotoDate time.Time `json:"photoDate"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Location  *string   `json:"location,omitempty"`
}

// EntryFilter narrows query results. Zero value matches everything.
type EntryFilter struct {
	// SearchText is matched case-insensitively as a substring of the
	// entry's indexed text (title, content and tags).
	SearchText string
	// Tags must ALL be present on the entry (user or generated).
	Tags []string
	// From and To bound the entry date, inclusive, compared in UTC.
	From *time.Time
	To   *time.Time
}

// IsZero reports whether the filter applies no predicates.
func (f EntryFilter) IsZero() bool {
	return f.SearchText == "" && len(f.Tags) == 0 && f.From == nil && f.To == nil
}

// Matches evaluates every predicate except SearchText, which is resolved
// against the search index before the entry is loaded.
func (f EntryFilter) Matches(e *Entry) bool {
	if e == nil {
		return false
	}
	if len(f.Tags) > 0 {
		have := make(map[string]struct{}, len(e.Tags)+len(e.CachedTags))
		for _, t := range e.AllTags() {
			have[t] = struct{}{}
		}
		for _, want := range f.Tags {
			if _, ok := have[want]; !ok {
				return false
			}
		}
	}
	date := e.Date.UTC()
	if f.From != nil && date.Before(f.From.UTC()) {
		return false
	}
	if f.To != nil && date.After(f.To.UTC()) {
		return false
	}
	return true
}

// SameDay reports whether a and b fall on the same calendar day in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
