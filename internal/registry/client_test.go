package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient builds a client against a stub server with a permissive
// limiter and instant retry sleeps.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
	c.sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return c, srv
}

func TestClient_CallSendsBasicAuthAndAccept(t *testing.T) {
	var gotUser, gotPass string
	var gotAccept string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotAccept = r.Header.Get("Accept")
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))

	var page searchPage
	if err := c.call(context.Background(), http.MethodGet, "/search/companies", url.Values{"q": {"acme"}}, nil, &page); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if gotUser != "test-key" || gotPass != "" {
		t.Errorf("basic auth = (%q, %q), want (test-key, empty)", gotUser, gotPass)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestClient_NoAPIKeyShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: ""})

	var page searchPage
	err := c.call(context.Background(), http.MethodGet, "/search/companies", nil, nil, &page)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("call = %v, want ErrNoAPIKey", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server saw %d calls, want 0", n)
	}
}

func TestClient_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	var waits []time.Duration

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	var page searchPage
	if err := c.call(context.Background(), http.MethodGet, "/search/companies", nil, nil, &page); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if n := calls.Load(); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
	if len(waits) != 2 || waits[0] != 7*time.Second || waits[1] != 7*time.Second {
		t.Errorf("retry waits = %v, want two 7s waits from Retry-After", waits)
	}
}

func TestClient_429RetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	var page searchPage
	err := c.call(context.Background(), http.MethodGet, "/search/companies", nil, nil, &page)
	if err == nil {
		t.Fatal("call succeeded, want terminal throttling error")
	}

	// initial attempt plus DefaultMaxRetries retries
	if n := calls.Load(); n != int32(DefaultMaxRetries)+1 {
		t.Errorf("server saw %d calls, want %d", n, DefaultMaxRetries+1)
	}
}

func TestClient_405IsSentinel(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	var page searchPage
	err := c.call(context.Background(), http.MethodPost, "/advanced-search/companies", nil, advancedQuery{}, &page)
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Errorf("call = %v, want ErrMethodNotAllowed", err)
	}
}

func TestClient_ServerErrorIsPlainError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))

	var page searchPage
	err := c.call(context.Background(), http.MethodGet, "/search/companies", nil, nil, &page)
	if err == nil {
		t.Fatal("call succeeded, want error")
	}
	if errors.Is(err, ErrMethodNotAllowed) || errors.Is(err, ErrNoAPIKey) {
		t.Errorf("plain remote failure mapped to a sentinel: %v", err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"present", "30", 30 * time.Second},
		{"zero", "0", 0},
		{"absent", "", defaultRetryAfter},
		{"garbage", "soon", defaultRetryAfter},
		{"negative", "-5", defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := retryAfter(h); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
