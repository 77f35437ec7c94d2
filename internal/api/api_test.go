package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsuzuri-app/tsuzuri/internal/auth"
	"github.com/tsuzuri-app/tsuzuri/internal/diary"
	"github.com/tsuzuri-app/tsuzuri/internal/events"
	"github.com/tsuzuri-app/tsuzuri/internal/index"
	"github.com/tsuzuri-app/tsuzuri/internal/model"
	"github.com/tsuzuri-app/tsuzuri/internal/platform/logger"
	"github.com/tsuzuri-app/tsuzuri/internal/store/memstore"
)

// newTestServer wires the full stack on the in-memory store so handler
// tests exercise real writer and reader behavior, not mocks.
func newTestServer(t *testing.T, authorizer auth.Authorizer) (*httptest.Server, *diary.Writer) {
	t.Helper()

	log := logger.New("api-test")
	st := memstore.New()
	idx := index.New()
	bus := events.NewBus(16)

	w := diary.NewWriter(st, idx, bus, nil, log)
	require.NoError(t, w.Rebuild(context.Background()))
	r := diary.NewReader(st, idx, nil, log)

	srv := httptest.NewServer(NewRouter(NewEntryHandler(w, r, log), authorizer))
	t.Cleanup(func() {
		srv.Close()
		w.Close()
		bus.Close()
	})
	return srv, w
}

func makeRequest(t *testing.T, srv *httptest.Server, method, path string, body interface{}) *http.Response {
	t.Helper()
	return makeAuthedRequest(t, srv, method, path, "", body)
}

func makeAuthedRequest(t *testing.T, srv *httptest.Server, method, path, apiKey string, body interface{}) *http.Response {
	t.Helper()

	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req, err := http.NewRequest(method, srv.URL+path, bodyReader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func parseResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createEntry(t *testing.T, srv *httptest.Server, date, title, content string, photoIDs []string, tags []string) model.Entry {
	t.Helper()

	resp := makeRequest(t, srv, "POST", "/api/entries", map[string]interface{}{
		"date":     date,
		"title":    title,
		"content":  content,
		"photoIds": photoIDs,
		"tags":     tags,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var e model.Entry
	parseResponse(t, resp, &e)
	return e
}

func listedIDs(t *testing.T, resp *http.Response) []string {
	t.Helper()

	var result struct {
		Entries []model.Entry `json:"entries"`
		Count   int           `json:"count"`
	}
	parseResponse(t, resp, &result)
	require.Len(t, result.Entries, result.Count)

	ids := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestAPI_HealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey(""))

	t.Run("Healthy", func(t *testing.T) {
		BindServiceHealth(func() bool { return true })
		BindComponentHealth(func() map[string]bool { return map[string]bool{"store": true} })

		resp := makeRequest(t, srv, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]interface{}
		parseResponse(t, resp, &result)
		assert.Equal(t, "healthy", result["status"])
		assert.NotNil(t, result["timestamp"])
		components := result["components"].(map[string]interface{})
		assert.Equal(t, true, components["store"])
	})

	t.Run("Unhealthy", func(t *testing.T) {
		BindServiceHealth(func() bool { return false })

		resp := makeRequest(t, srv, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var result map[string]interface{}
		parseResponse(t, resp, &result)
		assert.Equal(t, "unhealthy", result["status"])
	})
}

func TestAPI_EntryLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey(""))

	created := createEntry(t, srv, "2025-08-10", "海の日", "波が高かった", []string{"p1", "p2"}, nil)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "海の日", created.Title)
	assert.Equal(t, []string{"p1", "p2"}, created.PhotoIDs)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("Get", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var e model.Entry
		parseResponse(t, resp, &e)
		assert.Equal(t, created.ID, e.ID)
		assert.Equal(t, created.Title, e.Title)
	})

	t.Run("Get - Not Found", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries/no-such-entry", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Update", func(t *testing.T) {
		resp := makeRequest(t, srv, "PUT", "/api/entries/"+created.ID, map[string]interface{}{
			"date":     "2025-08-10",
			"title":    "海の日(改)",
			"content":  "波が高かった",
			"photoIds": []string{"p2", "p3"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var e model.Entry
		parseResponse(t, resp, &e)
		assert.Equal(t, "海の日(改)", e.Title)
		assert.Equal(t, []string{"p2", "p3"}, e.PhotoIDs)
		assert.Equal(t, created.CreatedAt.UTC(), e.CreatedAt.UTC())
	})

	t.Run("Delete", func(t *testing.T) {
		resp := makeRequest(t, srv, "DELETE", "/api/entries/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = makeRequest(t, srv, "GET", "/api/entries/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Delete - Idempotent", func(t *testing.T) {
		resp := makeRequest(t, srv, "DELETE", "/api/entries/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestAPI_ListEntries(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey(""))

	// Created out of date order on purpose; listings must sort by date.
	e10 := createEntry(t, srv, "2025-08-10", "公園の朝", "子供と散歩", []string{"p1"}, []string{"散歩"})
	e14 := createEntry(t, srv, "2025-08-14", "カフェ", "新しい店", nil, []string{"食事"})
	e12 := createEntry(t, srv, "2025-08-12", "雨の日", "家で読書", nil, nil)
	e11 := createEntry(t, srv, "2025-08-11", "公園でピクニック", "よく晴れた", []string{"p2"}, []string{"散歩", "食事"})
	e13 := createEntry(t, srv, "2025-08-13", "仕事", "打ち合わせ", nil, nil)

	t.Run("Default Newest First", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e14.ID, e13.ID, e12.ID, e11.ID, e10.ID}, listedIDs(t, resp))
	})

	t.Run("Ascending", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?descending=false", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e10.ID, e11.ID, e12.ID, e13.ID, e14.ID}, listedIDs(t, resp))
	})

	t.Run("Search", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?search="+urlEncode("公園"), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e11.ID, e10.ID}, listedIDs(t, resp))
	})

	t.Run("Tags Must All Match", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?tags="+urlEncode("散歩")+"&tags="+urlEncode("食事"), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e11.ID}, listedIDs(t, resp))
	})

	t.Run("Date Range", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?from=2025-08-11&to=2025-08-13", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e13.ID, e12.ID, e11.ID}, listedIDs(t, resp))
	})

	t.Run("Pagination", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?offset=2&limit=2", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e12.ID, e11.ID}, listedIDs(t, resp))

		resp = makeRequest(t, srv, "GET", "/api/entries?offset=4&limit=2", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e10.ID}, listedIDs(t, resp))

		resp = makeRequest(t, srv, "GET", "/api/entries?offset=10&limit=2", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, listedIDs(t, resp))
	})

	t.Run("Pagination With Filter", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?tags="+urlEncode("散歩")+"&offset=1&limit=5", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{e10.ID}, listedIDs(t, resp))
	})
}

func TestAPI_PastPhotoAndLookups(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey(""))

	today := createEntry(t, srv, "2025-08-20", "今日の日記", "いつも通り", []string{"p9"}, nil)

	var past model.Entry
	t.Run("Create From Past Photo", func(t *testing.T) {
		resp := makeRequest(t, srv, "POST", "/api/entries/past-photo", map[string]interface{}{
			"photoId":   "old-photo-1",
			"photoDate": "2024-12-31",
			"title":     "大晦日",
			"content":   "去年の写真を見つけた",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		parseResponse(t, resp, &past)
		assert.Equal(t, []string{"old-photo-1"}, past.PhotoIDs)
		assert.Equal(t, "2024-12-31", past.Date.UTC().Format("2006-01-02"))
	})

	t.Run("Duplicate Date Still Created", func(t *testing.T) {
		resp := makeRequest(t, srv, "POST", "/api/entries/past-photo", map[string]interface{}{
			"photoId":   "old-photo-2",
			"photoDate": "2024-12-31",
			"title":     "大晦日その2",
			"content":   "同じ日のもう一枚",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("Lookup By Photo", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries/by-photo/old-photo-1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var e model.Entry
		parseResponse(t, resp, &e)
		assert.Equal(t, past.ID, e.ID)
	})

	t.Run("Lookup By Photo - Not Found", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries/by-photo/never-uploaded", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Entries On Date", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries/on/2024-12-31", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, listedIDs(t, resp), 2)

		resp = makeRequest(t, srv, "GET", "/api/entries/on/2025-08-20", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{today.ID}, listedIDs(t, resp))

		resp = makeRequest(t, srv, "GET", "/api/entries/on/2000-01-01", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, listedIDs(t, resp))
	})
}

func TestAPI_IndexRebuild(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey(""))

	a := createEntry(t, srv, "2025-08-01", "一日目", "", nil, nil)
	b := createEntry(t, srv, "2025-08-02", "二日目", "", nil, nil)

	resp := makeRequest(t, srv, "POST", "/api/index/rebuild", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = makeRequest(t, srv, "GET", "/api/entries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{b.ID, a.ID}, listedIDs(t, resp))
}

func TestAPI_Authorization(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey("secret-key"))

	t.Run("Missing Key", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Wrong Key", func(t *testing.T) {
		resp := makeAuthedRequest(t, srv, "GET", "/api/entries", "wrong-key", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Valid Key", func(t *testing.T) {
		resp := makeAuthedRequest(t, srv, "GET", "/api/entries", "secret-key", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Rebuild Requires Key", func(t *testing.T) {
		resp := makeRequest(t, srv, "POST", "/api/index/rebuild", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Health Stays Open", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/health", nil)
		assert.NotEqual(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Metrics Stay Open", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/metrics", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestAPI_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t, auth.FromKey(""))

	t.Run("Invalid JSON", func(t *testing.T) {
		req, err := http.NewRequest("POST", srv.URL+"/api/entries", strings.NewReader("not json"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Missing Date", func(t *testing.T) {
		resp := makeRequest(t, srv, "POST", "/api/entries", map[string]interface{}{
			"title":   "no date",
			"content": "x",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Unparseable Date", func(t *testing.T) {
		resp := makeRequest(t, srv, "POST", "/api/entries", map[string]interface{}{
			"date":  "yesterday",
			"title": "x",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Bad Range Date", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?from=not-a-date", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Negative Offset", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?offset=-1&limit=2", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Bad Descending Flag", func(t *testing.T) {
		resp := makeRequest(t, srv, "GET", "/api/entries?descending=sideways", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Past Photo Missing Photo ID", func(t *testing.T) {
		resp := makeRequest(t, srv, "POST", "/api/entries/past-photo", map[string]interface{}{
			"photoDate": "2024-12-31",
			"title":     "x",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func urlEncode(s string) string {
	return url.QueryEscape(s)
}
