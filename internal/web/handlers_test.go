package web

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgrantham/chexport/internal/config"
	"github.com/dgrantham/chexport/internal/export"
	"github.com/dgrantham/chexport/internal/registry"
)

// newTestServer wires a full server against a fake upstream registry.
func newTestServer(t *testing.T, upstream http.Handler, apiKey string) *Server {
	t.Helper()
	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	client := registry.New(registry.Config{
		BaseURL: ts.URL,
		APIKey:  apiKey,
		Limiter: registry.NewRateLimiter(1000, time.Minute),
	})
	return NewServer(export.NewService(client), client, &config.Config{})
}

// acmeUpstream serves one company with two officers and counts requests.
func acmeUpstream(calls *atomic.Int32) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/companies", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{
				"company_number": "01234567",
				"title":          "ACME LTD",
				"company_status": "active",
			}},
			"total_results": 1,
		})
	})
	mux.HandleFunc("/company/01234567/officers", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"name": "DOE, Jane", "officer_role": "director", "appointed_on": "2019-03-01"},
				{"name": "SMITH, John", "officer_role": "secretary", "appointed_on": "2020-06-15"},
			},
			"total_count": 2,
		})
	})
	return mux
}

func postSearch(t *testing.T, s *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	return resp
}

func TestHandleSearch_ExportsFlattenedCSV(t *testing.T) {
	var calls atomic.Int32
	s := newTestServer(t, acmeUpstream(&calls), "test-key")

	rec := postSearch(t, s, url.Values{"company_name": {"Acme"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !regexp.MustCompile(`^attachment; filename="companies_export_\d{8}_\d{6}\.csv"$`).MatchString(cd) {
		t.Errorf("Content-Disposition = %q, want a timestamped attachment", cd)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("response is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("export has %d records, want header + one row per officer", len(records))
	}
	if len(records[0]) != len(export.Columns) {
		t.Errorf("header has %d columns, want %d", len(records[0]), len(export.Columns))
	}
	for i := 1; i <= 2; i++ {
		if records[i][0] != "ACME LTD" || records[i][1] != "01234567" {
			t.Errorf("row %d company fields = %v, want shared ACME fields", i, records[i][:2])
		}
	}
	if records[1][11] != "DOE, Jane" || records[2][11] != "SMITH, John" {
		t.Errorf("officer names = %q/%q, want registry order preserved", records[1][11], records[2][11])
	}
	if records[1][15] != "director" || records[2][15] != "secretary" {
		t.Errorf("officer roles = %q/%q, want director/secretary", records[1][15], records[2][15])
	}
}

func TestHandleSearch_EmptyFormRejectedWithoutUpstreamCalls(t *testing.T) {
	var calls atomic.Int32
	s := newTestServer(t, acmeUpstream(&calls), "test-key")

	rec := postSearch(t, s, url.Values{"company_name": {"   "}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "FLT001" {
		t.Errorf("error code = %q, want FLT001", resp.Code)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("upstream saw %d calls for an empty form, want 0", n)
	}
}

func TestHandleSearch_NoMatches(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}, "total_results": 0})
	}), "test-key")

	rec := postSearch(t, s, url.Values{"company_name": {"nonexistent"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "SRCH001" {
		t.Errorf("error code = %q, want SRCH001", resp.Code)
	}
}

func TestHandleSearch_AdvancedUnsupported(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}), "test-key")

	rec := postSearch(t, s, url.Values{"company_status": {"active"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "SRCH002" {
		t.Errorf("error code = %q, want SRCH002", resp.Code)
	}
}

func TestHandleSearch_MissingAPIKey(t *testing.T) {
	var calls atomic.Int32
	s := newTestServer(t, acmeUpstream(&calls), "")

	rec := postSearch(t, s, url.Values{"company_name": {"Acme"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "CFG001" {
		t.Errorf("error code = %q, want CFG001", resp.Code)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("upstream saw %d calls without a credential, want 0", n)
	}
}

func TestHandleHealth(t *testing.T) {
	for _, tt := range []struct {
		name   string
		apiKey string
		want   bool
	}{
		{"configured", "test-key", true},
		{"unconfigured", "", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, http.NotFoundHandler(), tt.apiKey)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var body healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("health body is not JSON: %v", err)
			}
			if body.Status != "ok" {
				t.Errorf("status field = %q, want ok", body.Status)
			}
			if body.APIKeyConfigured != tt.want {
				t.Errorf("api_key_configured = %v, want %v", body.APIKeyConfigured, tt.want)
			}
		})
	}
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t, http.NotFoundHandler(), "test-key")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), `name="company_name"`) {
		t.Errorf("index page is missing the company_name field")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, http.NotFoundHandler(), "test-key")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestInboundRateLimit(t *testing.T) {
	client := registry.New(registry.Config{BaseURL: "http://unused.invalid", APIKey: "test-key"})
	cfg := &config.Config{
		Rate: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2},
	}
	s := NewServer(export.NewService(client), client, cfg)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "198.51.100.7:4567"
		last = httptest.NewRecorder()
		s.Router().ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}

	// A different client is not affected by the exhausted budget.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:4567"
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}
