// Package ratelimit implements a per-key sliding window throttle held in
// process memory. It is a best-effort guard against runaway clients, not a
// security control: state is neither persisted nor shared across processes.
package ratelimit

import (
	"sync"
	"time"
)

// Window counts events per key over a rolling duration.
type Window struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

// DefaultLimit applies when the configured cap is zero or negative.
const DefaultLimit = 60

// NewWindow creates a limiter allowing limit events per window per key.
func NewWindow(limit int, window time.Duration) *Window {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Window{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
}

// Allow records one event for key and reports whether it fits the window.
// Requests over the cap are rejected, not queued.
func (w *Window) Allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	times := w.entries[key]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= w.limit {
		w.entries[key] = kept
		return false
	}

	w.entries[key] = append(kept, now)
	return true
}

// Sweep drops keys whose entries have all expired. Called periodically so the
// map does not grow with every user ever seen.
func (w *Window) Sweep() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.window)
	removed := 0
	for key, times := range w.entries {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(w.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys.
func (w *Window) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}
