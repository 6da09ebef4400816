// Package ratelimit throttles the secret-guarded write endpoints per client
// so the shared issuing secret cannot be brute-forced at line rate.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Window is an in-memory sliding-window limiter keyed by an arbitrary string.
// Each replica counts independently.
type Window struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	timestamps []time.Time
}

// Option configures a Window.
type Option func(*Window)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		w.now = now
	}
}

// NewWindow allows limit requests per key within any span of window.
func NewWindow(limit int, window time.Duration, opts ...Option) *Window {
	w := &Window{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Allow consumes one slot for key if capacity remains.
func (w *Window) Allow(key string) Result {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buckets[key]
	if !ok {
		b = &bucket{}
		w.buckets[key] = b
	}
	b.expire(now, w.window)

	if len(b.timestamps) >= w.limit {
		resetAt := b.timestamps[0].Add(w.window)
		return Result{
			Allowed:    false,
			Limit:      w.limit,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}
	}

	b.timestamps = append(b.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     w.limit,
		Remaining: w.limit - len(b.timestamps),
		ResetAt:   b.timestamps[0].Add(w.window),
	}
}

// Sweep drops keys with no timestamps left in the window and returns how
// many were removed. Run it periodically so idle clients do not accumulate.
func (w *Window) Sweep() int {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for key, b := range w.buckets {
		b.expire(now, w.window)
		if len(b.timestamps) == 0 {
			delete(w.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buckets)
}

func (b *bucket) expire(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(b.timestamps); i++ {
		if b.timestamps[i].After(cutoff) {
			break
		}
	}
	b.timestamps = b.timestamps[i:]
}

// retryAfterSeconds rounds up so clients never retry a moment too early.
func retryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
