package result

import (
	"sync"
	"time"
)

// Timer measures wall clock time between Start and Stop.
type Timer struct {
	mu    sync.Mutex
	start time.Time
	end   time.Time
}

// StartTimer returns a running timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Restart resets the timer to start now.
func (t *Timer) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Now()
	t.end = time.Time{}
}

// Stop stops the timer and returns the measured duration. Later calls keep
// the first stop time.
func (t *Timer) Stop() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.end.IsZero() {
		t.end = time.Now()
	}
	return t.end.Sub(t.start)
}

// Stopped reports whether Stop was called.
func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.end.IsZero()
}

// Duration returns the measured duration, or the running duration while the
// timer is not stopped.
func (t *Timer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.end.IsZero() {
		return time.Since(t.start)
	}
	return t.end.Sub(t.start)
}

// Started returns the start time.
func (t *Timer) Started() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.start
}

// Finished returns the stop time, zero while running.
func (t *Timer) Finished() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.end
}
