package tags

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

func TestOllamaProviderGenerate(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Fatal("stream must be disabled")
		}
		gotPrompt = req.Prompt
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "Beach, Sunset, Family"})
	}))
	defer srv.Close()

	loc := "Okinawa"
	p := NewOllamaProvider(srv.URL, "dummy-model")
	got, err := p.Generate(context.Background(), &model.Entry{
		Date:     time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC),
		Title:    "Beach day",
		Content:  "swimming all afternoon",
		Location: &loc,
	}, false)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if len(got) != 3 || got[0] != "beach" {
		t.Fatalf("unexpected tags: %v", got)
	}
	for _, want := range []string{"2025-07-20", "Beach day", "Okinawa", "swimming"} {
		if !strings.Contains(gotPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
	if strings.Contains(gotPrompt, "retroactively") {
		t.Fatalf("past-photo wording in regular prompt:\n%s", gotPrompt)
	}
}

func TestOllamaProviderPastPhotoPrompt(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Prompt
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "archive"})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "dummy-model")
	if _, err := p.Generate(context.Background(), &model.Entry{Date: time.Now()}, true); err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if !strings.Contains(gotPrompt, "retroactively") {
		t.Fatalf("past-photo prompt missing marker:\n%s", gotPrompt)
	}
}
