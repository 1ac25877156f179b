// Package registry implements the client for the external company-registry
// API: authenticated calls, outbound rate limiting, bounded retry on
// throttling, company search with strategy selection, and officer listing.
//
// Failure policy: ordinary remote failures (non-2xx statuses, transport
// errors, malformed bodies) are logged with diagnostic detail and returned
// as plain errors that the pagination layers absorb as "no data from this
// call" — an export is best-effort, not all-or-nothing. Only the sentinel
// errors below carry meaning for callers.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dgrantham/chexport/internal/logging"
)

const (
	// DefaultTimeout is the per-attempt HTTP deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is how many times a throttled call is retried
	// before it is abandoned.
	DefaultMaxRetries = 3

	// defaultRetryAfter is used when a 429 carries no Retry-After header.
	defaultRetryAfter = 60 * time.Second

	// pageSize is the page size used for both search and officer listings.
	pageSize = 100

	// maxErrorBody bounds how much of an error response body is logged.
	maxErrorBody = 200
)

var (
	// ErrNoAPIKey is returned when no registry credential is configured.
	// Calls short-circuit without touching the network.
	ErrNoAPIKey = errors.New("registry API key is not configured")

	// ErrMethodNotAllowed is returned when the registry rejects the request
	// method (HTTP 405), which signals that the endpoint's capability is
	// unavailable rather than that the query matched nothing.
	ErrMethodNotAllowed = errors.New("registry rejected the request method")

	// ErrAdvancedUnsupported is the terminal condition surfaced when the
	// advanced-search endpoint is unavailable and name-only fallback is
	// disabled (or impossible because no name was supplied).
	ErrAdvancedUnsupported = errors.New("advanced search is not supported by the registry")
)

// Config carries the settings needed to construct a Client.
type Config struct {
	// BaseURL is the registry API root, without a trailing slash.
	BaseURL string

	// APIKey is sent as the basic-auth username with an empty password.
	APIKey string

	// Timeout is the per-attempt deadline (default DefaultTimeout).
	Timeout time.Duration

	// MaxRetries bounds 429 retries per call (default DefaultMaxRetries).
	MaxRetries int

	// FallbackToNameSearch restarts a rejected advanced search in name-only
	// mode when a name filter is present.
	FallbackToNameSearch bool

	// Limiter admits outbound calls. A default limiter is created when nil.
	Limiter *RateLimiter
}

// Client issues authenticated calls against the registry API.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	limiter    *RateLimiter
	maxRetries int
	fallback   bool

	sleep func(context.Context, time.Duration) error
}

// New creates a registry client. The client is usable with an empty API key
// so the health probe can report the missing credential, but every call
// returns ErrNoAPIKey until one is configured.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = DefaultMaxRetries
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(DefaultWindowRequests, DefaultWindow)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: timeout},
		limiter:    limiter,
		maxRetries: retries,
		fallback:   cfg.FallbackToNameSearch,
		sleep:      sleepCtx,
	}
}

// Configured reports whether a registry credential is present. Used by the
// health probe.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// call performs one logical API call: rate-limit admission, basic auth,
// bounded retry on 429, and JSON decoding into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	logger := logging.FromContext(ctx)

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Admit(ctx); err != nil {
			return err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return fmt.Errorf("build %s %s: %w", method, path, err)
		}
		if len(query) > 0 {
			req.URL.RawQuery = query.Encode()
		}
		req.SetBasicAuth(c.apiKey, "")
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			logger.Error("registry request failed",
				"method", method,
				"path", path,
				"error", err,
			)
			return fmt.Errorf("registry %s %s: %w", method, path, err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt >= c.maxRetries {
				logger.Error("registry throttling persisted, giving up",
					"path", path,
					"attempts", attempt+1,
				)
				return fmt.Errorf("registry %s %s: throttled after %d attempts", method, path, attempt+1)
			}
			wait := retryAfter(resp.Header)
			logger.Warn("registry throttled, backing off",
				"path", path,
				"wait", wait,
				"attempt", attempt+1,
			)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue

		case resp.StatusCode == http.StatusMethodNotAllowed:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return ErrMethodNotAllowed

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			logger.Error("registry returned error status",
				"method", method,
				"path", path,
				"status", resp.StatusCode,
				"body", string(snippet),
			)
			return fmt.Errorf("registry %s %s: unexpected status %d", method, path, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			logger.Error("registry response decode failed",
				"method", method,
				"path", path,
				"error", err,
			)
			return fmt.Errorf("registry %s %s: decode response: %w", method, path, err)
		}
		return nil
	}
}

// retryAfter reads the server-directed backoff from a 429 response,
// defaulting to 60s when the header is absent or unparseable.
func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}
