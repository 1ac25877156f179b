package registry

// ratelimit.go implements the outbound sliding-window limiter for registry
// calls.
//
// The registry allows a fixed number of requests per trailing window (600
// per 5 minutes). Admit is called before every outbound attempt: it drops
// timestamps that have aged out of the window and, if the cap is still
// reached, blocks until the oldest recorded call falls outside the window.
//
// The limiter is owned by the Client and safe for concurrent exports: the
// mutex is held across the wait, so admits are strictly ordered and callers
// cannot leapfrog the cap. Clock and sleep are injectable for tests.

import (
	"context"
	"sync"
	"time"
)

// Default registry quota: 600 requests per 5 minutes.
const (
	DefaultWindowRequests = 600
	DefaultWindow         = 5 * time.Minute
)

// RateLimiter admits outbound calls under a sliding-window cap.
type RateLimiter struct {
	mu     sync.Mutex
	cap    int
	window time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRateLimiter creates a limiter allowing at most requests calls per
// window. Non-positive arguments fall back to the registry defaults.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = DefaultWindowRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{
		cap:    requests,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Admit blocks until a new outbound call may be dispatched, then records it.
// It returns early with the context's error if the caller is cancelled while
// waiting.
func (l *RateLimiter) Admit(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.stamps) >= l.cap {
		// Wait until the oldest recorded call ages out, plus a second of
		// slack against clock skew on the server side.
		wait := l.window - now.Sub(l.stamps[0]) + time.Second
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		l.prune(l.now())
	}

	l.stamps = append(l.stamps, l.now())
	return nil
}

// Pending returns the number of calls currently recorded inside the window.
func (l *RateLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps)
}

// prune discards timestamps older than the window. Callers hold the mutex.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
