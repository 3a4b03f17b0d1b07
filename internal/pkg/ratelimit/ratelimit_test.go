package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedClock lets tests move time forward explicitly.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time {
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestWindow(limit int, window time.Duration) (*Window, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	w := NewWindow(limit, window)
	w.now = clock.now
	return w, clock
}

func TestWindow_AllowUpToLimit(t *testing.T) {
	w, _ := newTestWindow(60, time.Minute)

	for i := 0; i < 60; i++ {
		assert.True(t, w.Allow("1:check"), "request %d should pass", i+1)
	}
	assert.False(t, w.Allow("1:check"), "61st request should be rejected")
}

func TestWindow_ZeroLimitFallsBackToDefault(t *testing.T) {
	// An unset config value must not produce a limiter that rejects everything.
	w, _ := newTestWindow(0, time.Minute)

	for i := 0; i < DefaultLimit; i++ {
		assert.True(t, w.Allow("1:deduct"), "request %d should pass", i+1)
	}
	assert.False(t, w.Allow("1:deduct"))

	w, _ = newTestWindow(-1, time.Minute)
	assert.True(t, w.Allow("1:deduct"))
}

func TestWindow_KeysAreIndependent(t *testing.T) {
	w, _ := newTestWindow(2, time.Minute)

	assert.True(t, w.Allow("1:check"))
	assert.True(t, w.Allow("1:check"))
	assert.False(t, w.Allow("1:check"))

	// Same user, different operation.
	assert.True(t, w.Allow("1:deduct"))
	// Different user, same operation.
	assert.True(t, w.Allow("2:check"))
}

func TestWindow_SlidesWithTime(t *testing.T) {
	w, clock := newTestWindow(2, time.Minute)

	assert.True(t, w.Allow("k"))
	clock.advance(30 * time.Second)
	assert.True(t, w.Allow("k"))
	assert.False(t, w.Allow("k"))

	// The first event ages out; exactly one slot frees up.
	clock.advance(31 * time.Second)
	assert.True(t, w.Allow("k"))
	assert.False(t, w.Allow("k"))
}

func TestWindow_RejectionsDoNotConsumeSlots(t *testing.T) {
	w, clock := newTestWindow(1, time.Minute)

	assert.True(t, w.Allow("k"))
	for i := 0; i < 10; i++ {
		assert.False(t, w.Allow("k"))
	}

	// Only the single accepted event has to expire.
	clock.advance(61 * time.Second)
	assert.True(t, w.Allow("k"))
}

func TestWindow_Sweep(t *testing.T) {
	w, clock := newTestWindow(10, time.Minute)

	w.Allow("a")
	w.Allow("b")
	clock.advance(30 * time.Second)
	w.Allow("c")
	assert.Equal(t, 3, w.Size())

	// a and b are fully expired, c still has a live entry.
	clock.advance(45 * time.Second)
	removed := w.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, w.Size())

	clock.advance(time.Hour)
	removed = w.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, w.Size())
}
