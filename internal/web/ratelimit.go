package web

// ratelimit.go implements inbound per-client rate limiting: a token bucket
// per IP (x/time/rate) with a janitor that evicts idle entries. This guards
// the service itself; the outbound registry quota is enforced separately by
// the registry client's sliding-window limiter.

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 15 * time.Minute
	limiterCleanupEvery = 2 * time.Minute
)

// ipLimiter caches one rate.Limiter per client IP.
type ipLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	rps     rate.Limit
	burst   int
}

type ipEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter creates a limiter allowing perMinute requests per IP, with
// a burst of the same size.
func newIPLimiter(perMinute int) *ipLimiter {
	l := &ipLimiter{
		entries: make(map[string]*ipEntry),
		rps:     rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
	}
	go l.janitor()
	return l
}

// get returns the limiter for ip, creating it on first sight.
func (l *ipLimiter) get(ip string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[ip]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[ip] = &ipEntry{lim: lim, lastSeen: now}
	return lim
}

// janitor periodically drops entries for IPs not seen within the idle TTL.
func (l *ipLimiter) janitor() {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleTTL)
		l.mu.Lock()
		for ip, ent := range l.entries {
			if ent.lastSeen.Before(cutoff) {
				delete(l.entries, ip)
			}
		}
		l.mu.Unlock()
	}
}

// middleware rejects requests over the per-IP budget with 429.
func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(r.RemoteAddr).Allow() {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
