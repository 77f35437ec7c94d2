package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractAPIKey(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer secret", "secret"},
		{"bearer secret", ""},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
		{"Bearer two words", "two words"},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			r.Header.Set("Authorization", c.header)
		}
		if got := ExtractAPIKey(r); got != c.want {
			t.Fatalf("header %q: got %q, want %q", c.header, got, c.want)
		}
	}
}

func TestStaticAuthorizer(t *testing.T) {
	a := NewStaticAuthorizer("sk_diary_test")
	ctx := context.Background()

	if err := a.Authorize(ctx, "sk_diary_test"); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if err := a.Authorize(ctx, "wrong"); err != ErrInvalidAPIKey {
		t.Fatalf("wrong key: got %v, want ErrInvalidAPIKey", err)
	}
	if err := a.Authorize(ctx, ""); err != ErrMissingAPIKey {
		t.Fatalf("empty key: got %v, want ErrMissingAPIKey", err)
	}
}

func TestFromKey(t *testing.T) {
	if _, ok := FromKey("").(*OpenAuthorizer); !ok {
		t.Fatal("empty key should select the open authorizer")
	}
	if _, ok := FromKey("k").(*StaticAuthorizer); !ok {
		t.Fatal("non-empty key should select the static authorizer")
	}
	if err := NewOpenAuthorizer().Authorize(context.Background(), ""); err != nil {
		t.Fatalf("open authorizer rejected a request: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(NewStaticAuthorizer("k1"))(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: got %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer k1")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("valid key: got %d, want 200", rr.Code)
	}
}
