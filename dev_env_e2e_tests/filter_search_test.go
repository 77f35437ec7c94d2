//go:build e2e
// +build e2e

package e2e

import (
	"net/url"
	"testing"
	"time"
)

// TestDevEnv_SearchAndPagination seeds a handful of entries with a marker
// string and drives the list endpoint through search, tag filtering and
// paging against the live service.
func TestDevEnv_SearchAndPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	skipUnlessHealthy(t, 3*time.Second)

	marker := uniqueTitle("e2emark")
	tag := uniqueTitle("e2etag")
	dates := []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05"}

	ids := make([]string, 0, len(dates))
	for i, d := range dates {
		payload := map[string]interface{}{
			"date":    d,
			"title":   uniqueTitle("SearchSeed"),
			"content": marker + " day " + d,
		}
		if i%2 == 0 {
			payload["tags"] = []string{tag}
		}
		var created entryDoc
		mustJSON(t, request(t, "POST", "/api/entries", payload), &created)
		ids = append(ids, created.ID)
	}
	defer func() {
		for _, id := range ids {
			r := request(t, "DELETE", "/api/entries/"+id, nil)
			_ = r.Body.Close()
		}
	}()

	// search finds exactly the seeded entries, newest first
	var found entryList
	mustJSON(t, request(t, "GET", "/api/entries?search="+url.QueryEscape(marker), nil), &found)
	if found.Count != len(dates) {
		t.Fatalf("search count: want %d got %d", len(dates), found.Count)
	}
	for i := 1; i < len(found.Entries); i++ {
		if found.Entries[i-1].Date < found.Entries[i].Date {
			t.Fatalf("search results not newest first: %s before %s",
				found.Entries[i-1].Date, found.Entries[i].Date)
		}
	}

	// tag filter keeps only the odd seeds
	var tagged entryList
	mustJSON(t, request(t, "GET", "/api/entries?tags="+url.QueryEscape(tag), nil), &tagged)
	if tagged.Count != 3 {
		t.Fatalf("tag filter count: want 3 got %d", tagged.Count)
	}

	// paging over the marker matches: pages of 2 are disjoint and ordered
	var page1, page2 entryList
	q := "search=" + url.QueryEscape(marker)
	mustJSON(t, request(t, "GET", "/api/entries?"+q+"&offset=0&limit=2", nil), &page1)
	mustJSON(t, request(t, "GET", "/api/entries?"+q+"&offset=2&limit=2", nil), &page2)
	if page1.Count != 2 || page2.Count != 2 {
		t.Fatalf("page sizes: %d and %d", page1.Count, page2.Count)
	}
	seen := map[string]bool{}
	for _, e := range append(page1.Entries, page2.Entries...) {
		if seen[e.ID] {
			t.Fatalf("entry %s appeared on two pages", e.ID)
		}
		seen[e.ID] = true
	}

	// an offset past the matches yields an empty page, not an error
	var empty entryList
	mustJSON(t, request(t, "GET", "/api/entries?"+q+"&offset=50&limit=2", nil), &empty)
	if empty.Count != 0 {
		t.Fatalf("expected empty page, got %d entries", empty.Count)
	}
}
