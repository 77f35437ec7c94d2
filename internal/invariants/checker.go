//
// 🔒 CRITICAL SYSTEM FILE - Invariant Contract Testing
// ⚠️  These tests ensure system invariants are never violated
// 🛡️  Uses customer-facing APIs only (blackbox testing)
// 📋  Never mutate invariants to get incremental changes working
//

package invariants

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// InvariantChecker tests system invariants using customer-facing APIs.
// This is a blackbox test that treats the service as an external system.
type InvariantChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewInvariantChecker creates a new invariant checker. apiKey may be empty
// for open deployments.
func NewInvariantChecker(baseURL, apiKey string) *InvariantChecker {
	return &InvariantChecker{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// 🔒 INVARIANT: Listings are always sorted by entry date; ascending is the
// exact reverse of descending.
func (ic *InvariantChecker) TestSortOrderInvariant(t *testing.T) {
	// Seed out of chronological order on purpose
	ids := []string{
		ic.createTestEntry(t, "2021-11-03", "sort seed newest", nil),
		ic.createTestEntry(t, "2021-11-01", "sort seed oldest", nil),
		ic.createTestEntry(t, "2021-11-02", "sort seed middle", nil),
	}
	defer ic.deleteAll(t, ids)

	t.Run("DescendingByDate", func(t *testing.T) {
		entries := ic.listEntries(t, "")
		dates := datesOf(t, entries)
		for i := 1; i < len(dates); i++ {
			assert.False(t, dates[i-1].Before(dates[i]),
				"listing must be newest first, position %d out of order", i)
		}
	})

	t.Run("AscendingIsExactReverse", func(t *testing.T) {
		desc := idsOf(ic.listEntries(t, ""))
		asc := idsOf(ic.listEntries(t, "descending=false"))
		require.Len(t, asc, len(desc))
		for i := range desc {
			assert.Equal(t, desc[i], asc[len(asc)-1-i],
				"ascending order must mirror descending order")
		}
	})
}

// 🔒 INVARIANT: A photo resolves to an entry exactly while some entry
// references it; replacing an entry's photos atomically moves resolution.
func (ic *InvariantChecker) TestPhotoLinkInvariant(t *testing.T) {
	photoA := fmt.Sprintf("inv-photo-a-%d", time.Now().UnixNano())
	photoB := fmt.Sprintf("inv-photo-b-%d", time.Now().UnixNano())
	photoC := fmt.Sprintf("inv-photo-c-%d", time.Now().UnixNano())

	id := ic.createTestEntry(t, "2021-12-01", "photo link seed", []string{photoA, photoB})
	defer ic.deleteAll(t, []string{id})

	t.Run("LinkedPhotosResolve", func(t *testing.T) {
		assert.Equal(t, id, ic.entryIDByPhoto(t, photoA))
		assert.Equal(t, id, ic.entryIDByPhoto(t, photoB))
		assert.Equal(t, "", ic.entryIDByPhoto(t, photoC))
	})

	t.Run("UpdateMovesResolutionAtomically", func(t *testing.T) {
		ic.makeRequest(t, "PUT", "/api/entries/"+id, map[string]interface{}{
			"date":     "2021-12-01",
			"title":    "photo link seed",
			"content":  "",
			"photoIds": []string{photoB, photoC},
		}, http.StatusOK)

		assert.Equal(t, "", ic.entryIDByPhoto(t, photoA), "removed photo must stop resolving")
		assert.Equal(t, id, ic.entryIDByPhoto(t, photoB), "kept photo must keep resolving")
		assert.Equal(t, id, ic.entryIDByPhoto(t, photoC), "added photo must start resolving")
	})
}

// 🔒 INVARIANT: Deletion is idempotent and takes effect immediately.
func (ic *InvariantChecker) TestDeleteInvariant(t *testing.T) {
	id := ic.createTestEntry(t, "2021-12-05", "delete seed", nil)

	t.Run("DeletedEntriesVanishFromLists", func(t *testing.T) {
		before := idsOf(ic.listEntries(t, ""))
		assert.Contains(t, before, id, "entry must be listed before deletion")

		ic.makeRequest(t, "DELETE", "/api/entries/"+id, nil, http.StatusNoContent)

		after := idsOf(ic.listEntries(t, ""))
		assert.NotContains(t, after, id, "entry must not be listed after deletion")
	})

	t.Run("DeletionIsIdempotent", func(t *testing.T) {
		// Delete again - should be noop, no error
		ic.makeRequest(t, "DELETE", "/api/entries/"+id, nil, http.StatusNoContent)
	})
}

// 🔒 INVARIANT: Pages partition the match list: no overlaps, no gaps in
// order, and past-the-end offsets yield empty pages rather than errors.
func (ic *InvariantChecker) TestPaginationInvariant(t *testing.T) {
	marker := fmt.Sprintf("inv-page-%d", time.Now().UnixNano())
	var ids []string
	for day := 1; day <= 5; day++ {
		ids = append(ids, ic.createTestEntry(t,
			fmt.Sprintf("2021-10-0%d", day), marker, nil))
	}
	defer ic.deleteAll(t, ids)

	q := "search=" + marker
	all := idsOf(ic.listEntries(t, q))
	require.Len(t, all, 5)

	t.Run("PagesPartitionTheMatches", func(t *testing.T) {
		var paged []string
		for offset := 0; offset < 6; offset += 2 {
			page := idsOf(ic.listEntries(t, fmt.Sprintf("%s&offset=%d&limit=2", q, offset)))
			paged = append(paged, page...)
		}
		assert.Equal(t, all, paged, "concatenated pages must equal the full listing")
	})

	t.Run("OffsetPastEndIsEmptyNotError", func(t *testing.T) {
		page := ic.listEntries(t, q+"&offset=40&limit=2")
		assert.Empty(t, page)
	})
}

// Helper methods for API interactions

func (ic *InvariantChecker) createTestEntry(t *testing.T, date, content string, photoIDs []string) string {
	createReq := map[string]interface{}{
		"date":    date,
		"title":   "invariant seed",
		"content": content,
	}
	if len(photoIDs) > 0 {
		createReq["photoIds"] = photoIDs
	}

	resp := ic.makeRequest(t, "POST", "/api/entries", createReq, http.StatusCreated)

	var entry map[string]interface{}
	err := json.Unmarshal(resp, &entry)
	require.NoError(t, err)

	return entry["id"].(string)
}

func (ic *InvariantChecker) deleteAll(t *testing.T, ids []string) {
	for _, id := range ids {
		ic.makeRequest(t, "DELETE", "/api/entries/"+id, nil, http.StatusNoContent)
	}
}

func (ic *InvariantChecker) listEntries(t *testing.T, query string) []map[string]interface{} {
	path := "/api/entries"
	if query != "" {
		path += "?" + query
	}
	resp := ic.makeRequest(t, "GET", path, nil, http.StatusOK)

	var result struct {
		Entries []map[string]interface{} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(resp, &result))
	return result.Entries
}

// entryIDByPhoto returns the resolving entry id, or "" when the photo is
// unlinked (404).
func (ic *InvariantChecker) entryIDByPhoto(t *testing.T, photoID string) string {
	resp := ic.makeRequestNoAssert("GET", "/api/entries/by-photo/"+photoID, nil)
	require.NotNil(t, resp, "by-photo request failed")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ""
	}
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entry map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	return entry["id"].(string)
}

func idsOf(entries []map[string]interface{}) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e["id"].(string))
	}
	return out
}

func datesOf(t *testing.T, entries []map[string]interface{}) []time.Time {
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		ts, err := time.Parse(time.RFC3339, e["date"].(string))
		require.NoError(t, err)
		out = append(out, ts)
	}
	return out
}

func (ic *InvariantChecker) makeRequest(t *testing.T, method, path string, body interface{}, expectedStatus int) []byte {
	var reqBody []byte
	var err error

	if body != nil {
		reqBody, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, ic.baseURL+path, bytes.NewBuffer(reqBody))
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ic.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+ic.apiKey)
	}

	resp, err := ic.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Verify expected status
	assert.Equal(t, expectedStatus, resp.StatusCode,
		"Expected status %d but got %d for %s %s", expectedStatus, resp.StatusCode, method, path)

	// Read the full response body
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return respBody
}

// makeRequestNoAssert performs a request without failing the test on
// transport errors; callers inspect the response themselves.
func (ic *InvariantChecker) makeRequestNoAssert(method, path string, body interface{}) *http.Response {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, err := http.NewRequest(method, ic.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ic.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+ic.apiKey)
	}

	resp, err := ic.client.Do(req)
	if err != nil {
		return nil
	}
	return resp
}
