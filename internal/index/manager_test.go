package index

import (
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func entry(id string, date time.Time) *model.Entry {
	return &model.Entry{ID: id, Date: date, Title: "t-" + id}
}

func seqOf(entries ...*model.Entry) iter.Seq2[*model.Entry, error] {
	return func(yield func(*model.Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func TestInsertKeepsDateDescendingOrder(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))
	m.Insert(entry("b", day(5)))
	m.Insert(entry("c", day(3)))

	assert.Equal(t, []string{"b", "c", "a"}, m.IDs())
	assert.Equal(t, 3, m.Len())
}

func TestInsertEqualDatesAreStable(t *testing.T) {
	m := New()
	m.Insert(entry("first", day(2)))
	m.Insert(entry("second", day(2)))
	m.Insert(entry("third", day(2)))

	assert.Equal(t, []string{"first", "second", "third"}, m.IDs())
}

func TestInsertExistingIDReplaces(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))
	m.Insert(entry("b", day(2)))
	m.Insert(entry("a", day(3)))

	assert.Equal(t, []string{"a", "b"}, m.IDs())
	assert.Equal(t, 2, m.Len())
}

func TestUpdateRepositionsOnDateChange(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))
	m.Insert(entry("b", day(5)))

	m.Update(entry("a", day(9)))
	assert.Equal(t, []string{"a", "b"}, m.IDs())
}

func TestUpdateRefreshesSearchText(t *testing.T) {
	m := New()
	e := entry("a", day(1))
	m.Insert(e)

	e2 := entry("a", day(1))
	e2.Title = "Morning Walk"
	m.Update(e2)

	got, ok := m.SearchText("a")
	require.True(t, ok)
	assert.Contains(t, got, "morning walk")
	assert.Equal(t, []string{"a"}, m.IDs())
}

func TestUpdateUnknownIDInserts(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))
	m.Update(entry("b", day(2)))

	assert.Equal(t, []string{"b", "a"}, m.IDs())
}

func TestRemove(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))
	m.Insert(entry("b", day(5)))
	m.Insert(entry("c", day(3)))

	m.Remove("c")
	assert.Equal(t, []string{"b", "a"}, m.IDs())
	_, ok := m.SearchText("c")
	assert.False(t, ok)

	// unknown id is a no-op
	m.Remove("zz")
	assert.Equal(t, []string{"b", "a"}, m.IDs())
}

func TestRemoveWithinEqualDateRun(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(2)))
	m.Insert(entry("b", day(2)))
	m.Insert(entry("c", day(2)))

	m.Remove("b")
	assert.Equal(t, []string{"a", "c"}, m.IDs())
}

func TestBuildSortsAndNormalizes(t *testing.T) {
	m := New()
	err := m.Build(seqOf(
		entry("old", day(1)),
		entry("new", day(9)),
		entry("mid", day(4)),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"new", "mid", "old"}, m.IDs())
	got, ok := m.SearchText("mid")
	require.True(t, ok)
	assert.Equal(t, "t-mid ", got)
}

func TestBuildReplacesPreviousState(t *testing.T) {
	m := New()
	m.Insert(entry("stale", day(1)))

	require.NoError(t, m.Build(seqOf(entry("fresh", day(2)))))
	assert.Equal(t, []string{"fresh"}, m.IDs())
	assert.False(t, m.Contains("stale"))
}

func TestBuildErrorLeavesIndexUntouched(t *testing.T) {
	m := New()
	m.Insert(entry("keep", day(1)))

	boom := errors.New("boom")
	err := m.Build(func(yield func(*model.Entry, error) bool) {
		if !yield(entry("x", day(2)), nil) {
			return
		}
		yield(nil, boom)
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"keep"}, m.IDs())
}

func TestSetSearchTextIgnoresUnknownID(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))

	m.SetSearchText("ghost", "whatever")
	_, ok := m.SearchText("ghost")
	assert.False(t, ok)

	m.SetSearchText("a", "fresh text")
	got, _ := m.SearchText("a")
	assert.Equal(t, "fresh text", got)
}

func TestIDsOnMatchesUTCDay(t *testing.T) {
	m := New()
	jst := time.FixedZone("JST", 9*3600)
	// 07:00 JST on Jan 2 is 22:00 UTC on Jan 1
	m.Insert(entry("a", time.Date(2025, 1, 2, 7, 0, 0, 0, jst)))
	m.Insert(entry("b", time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)))
	m.Insert(entry("c", time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)))

	got := m.IDsOn(time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Empty(t, m.IDsOn(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestIDsReturnsCopy(t *testing.T) {
	m := New()
	m.Insert(entry("a", day(1)))

	ids := m.IDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"a"}, m.IDs())
}

func TestNormalizeFoldsCase(t *testing.T) {
	e := &model.Entry{
		Title:      "Park Day",
		Content:    "公園で遊んだ",
		Tags:       []string{"Family"},
		CachedTags: []string{"Outdoor"},
	}
	got := Normalize(e)
	assert.Equal(t, "park day 公園で遊んだ family outdoor", got)
	assert.Contains(t, got, Fold("公園"))
}
