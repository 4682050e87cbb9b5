package mock

import (
	"sync"
	"time"
)

// FakeTimer implements backoff.Timer without sleeping. Every Start fires
// immediately and records the requested duration.
type FakeTimer struct {
	mu      sync.Mutex
	c       chan time.Time
	sleeps  []time.Duration
	onStart func(n int)
}

// NewFakeTimer creates a timer that fires immediately
func NewFakeTimer() *FakeTimer {
	return &FakeTimer{c: make(chan time.Time, 1)}
}

// Start records d and fires the timer
func (t *FakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.sleeps = append(t.sleeps, d)
	n := len(t.sleeps)
	hook := t.onStart
	t.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	select {
	case t.c <- time.Now():
	default:
	}
}

// Stop implements backoff.Timer
func (t *FakeTimer) Stop() {}

// C implements backoff.Timer
func (t *FakeTimer) C() <-chan time.Time {
	return t.c
}

// OnStart registers a hook called with the 1-based sleep number before the
// timer fires. Tests use it to cancel a context mid-retry.
func (t *FakeTimer) OnStart(fn func(n int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// Sleeps returns every requested sleep duration in order
func (t *FakeTimer) Sleeps() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.sleeps...)
}
