// Package ratelimit provides a per-key sliding-window admission controller
// for outbound classification calls.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of admissions allowed per window.
	DefaultMaxRequests = 10
	// DefaultWindow is the sliding window duration.
	DefaultWindow = 60 * time.Second
)

// Limiter tracks admission timestamps per key. Each key owns an independent
// window; keys never share state. Timestamps older than the window are
// evicted lazily on every check, so windows self-prune and never need
// explicit teardown.
type Limiter struct {
	now     func() time.Time
	windows map[string][]time.Time
	window  time.Duration
	max     int
	mu      sync.Mutex
}

// New creates a limiter allowing max admissions per key within window.
// Non-positive arguments fall back to the defaults.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		max:     max,
		window:  window,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// CanAdmit reports whether a slot is available for key. It evicts expired
// timestamps first, so the answer reflects the current window only.
func (l *Limiter) CanAdmit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.evictLocked(key)
	return len(valid) < l.max
}

// Record consumes a slot for key by appending the current time. It does not
// check admissibility; callers decide what to do on rejection before
// committing the slot via Record.
func (l *Limiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.windows[key] = append(l.evictLocked(key), l.now())
}

// TimeUntilNextSlot returns how long the caller must wait before a slot
// frees up for key. Returns 0 when a slot is already available.
func (l *Limiter) TimeUntilNextSlot(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.evictLocked(key)
	if len(valid) < l.max {
		return 0
	}

	wait := l.window - l.now().Sub(valid[0])
	if wait < 0 {
		return 0
	}
	return wait
}

// Remaining returns the number of slots still available for key.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.max - len(l.evictLocked(key))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the windows for the given keys, or every window when no key
// is given. Intended as an explicit administrative call, not part of the
// normal request path.
func (l *Limiter) Reset(keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(keys) == 0 {
		l.windows = make(map[string][]time.Time)
		return
	}
	for _, key := range keys {
		delete(l.windows, key)
	}
}

// evictLocked drops timestamps older than the window for key and returns
// the surviving ones. Callers must hold l.mu.
func (l *Limiter) evictLocked(key string) []time.Time {
	cutoff := l.now().Add(-l.window)
	stamps := l.windows[key]

	valid := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	l.windows[key] = valid
	return valid
}
