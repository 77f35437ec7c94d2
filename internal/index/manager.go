// Package index maintains the in-memory query structures derived from the
// entry store: a date-descending id sequence and a per-entry normalized
// search text. The index is disposable; Build reconstructs it from the
// store at any time.
package index

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

var (
	indexedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tsuzuri",
		Subsystem: "index",
		Name:      "entries",
		Help:      "Entries currently held by the index.",
	})
	rebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsuzuri",
		Subsystem: "index",
		Name:      "rebuilds_total",
		Help:      "Completed full index rebuilds.",
	})
)

// Manager holds both index structures behind a single RWMutex so readers
// never observe an id sequence and search map from different mutations.
type Manager struct {
	mu     sync.RWMutex
	ids    []string             // entry ids, newest date first
	dates  map[string]time.Time // sort key, also the membership set
	search map[string]string    // normalized searchable text per id
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		dates:  make(map[string]time.Time),
		search: make(map[string]string),
	}
}

// Build replaces the index with one derived from the given entry sequence,
// typically store.All. On iteration error the existing index is left
// untouched. Entries sharing a date keep their iteration order.
func (m *Manager) Build(entries iter.Seq2[*model.Entry, error]) error {
	var all []*model.Entry
	for e, err := range entries {
		if err != nil {
			return fmt.Errorf("index build: %w", err)
		}
		all = append(all, e)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})

	ids := make([]string, 0, len(all))
	dates := make(map[string]time.Time, len(all))
	search := make(map[string]string, len(all))
	for _, e := range all {
		ids = append(ids, e.ID)
		dates[e.ID] = e.Date
		search[e.ID] = Normalize(e)
	}

	m.mu.Lock()
	m.ids = ids
	m.dates = dates
	m.search = search
	m.mu.Unlock()

	rebuildsTotal.Inc()
	indexedEntries.Set(float64(len(ids)))
	return nil
}

// Insert adds the entry at its date position. Entries with an equal date
// stay ahead of the newcomer. Inserting an already-indexed id replaces it.
func (m *Manager) Insert(e *model.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dates[e.ID]; ok {
		m.removeLocked(e.ID)
	}
	m.insertLocked(e)
	indexedEntries.Set(float64(len(m.ids)))
}

// Update repositions the entry if its date changed and refreshes its search
// text. An id the index has never seen is inserted.
func (m *Manager) Update(e *model.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.dates[e.ID]
	if !ok {
		m.insertLocked(e)
		indexedEntries.Set(float64(len(m.ids)))
		return
	}
	if !old.Equal(e.Date) {
		m.removeLocked(e.ID)
		m.insertLocked(e)
	} else {
		m.dates[e.ID] = e.Date
		m.search[e.ID] = Normalize(e)
	}
}

// Remove drops the id from both structures. Unknown ids are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dates[id]; !ok {
		return
	}
	m.removeLocked(id)
	indexedEntries.Set(float64(len(m.ids)))
}

// IDs returns a copy of the id sequence, newest date first.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.ids...)
}

// Len returns the number of indexed entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Contains reports whether the id is indexed.
func (m *Manager) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.dates[id]
	return ok
}

// IDsOn returns, in global order, the ids whose date falls on the same UTC
// calendar day as date.
func (m *Manager) IDsOn(date time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range m.ids {
		if model.SameDay(m.dates[id], date) {
			out = append(out, id)
		}
	}
	return out
}

// SearchText returns the normalized text for an indexed id.
func (m *Manager) SearchText(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.search[id]
	return s, ok
}

// SetSearchText overwrites the normalized text for an id. Ids no longer
// indexed are ignored so late async updates cannot resurrect deleted
// entries.
func (m *Manager) SetSearchText(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dates[id]; !ok {
		return
	}
	m.search[id] = text
}

// insertLocked places e.ID after every id with a date >= e.Date.
func (m *Manager) insertLocked(e *model.Entry) {
	pos := sort.Search(len(m.ids), func(i int) bool {
		return m.dates[m.ids[i]].Before(e.Date)
	})
	m.ids = append(m.ids, "")
	copy(m.ids[pos+1:], m.ids[pos:])
	m.ids[pos] = e.ID
	m.dates[e.ID] = e.Date
	m.search[e.ID] = Normalize(e)
}

// removeLocked locates the id via its stored date, then scans the
// equal-date run. Caller must hold the write lock and have checked
// membership.
func (m *Manager) removeLocked(id string) {
	date := m.dates[id]
	start := sort.Search(len(m.ids), func(i int) bool {
		return !m.dates[m.ids[i]].After(date)
	})
	for i := start; i < len(m.ids); i++ {
		if m.ids[i] == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
		if !m.dates[m.ids[i]].Equal(date) {
			break
		}
	}
	delete(m.dates, id)
	delete(m.search, id)
}

// Normalize produces the case-folded searchable text for an entry: title,
// content, user tags and generated tags joined by spaces.
func Normalize(e *model.Entry) string {
	var b strings.Builder
	b.Grow(len(e.Title) + len(e.Content) + 16)
	b.WriteString(e.Title)
	b.WriteByte(' ')
	b.WriteString(e.Content)
	for _, t := range e.Tags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	for _, t := range e.CachedTags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	return strings.ToLower(b.String())
}

// Fold lowercases a query the same way Normalize folds entry text.
func Fold(s string) string { return strings.ToLower(s) }
