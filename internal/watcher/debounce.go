package watcher

import (
	"sync"
	"time"
)

// QuietWindow accepts a trigger only when more than the window has elapsed
// since the last accepted one. Rejected triggers are dropped, not queued.
type QuietWindow struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
}

// NewQuietWindow creates a guard with the given window.
func NewQuietWindow(window time.Duration) *QuietWindow {
	return &QuietWindow{window: window}
}

// Accept reports whether a trigger at now is let through and, if so,
// restarts the window. The first trigger is always accepted.
func (q *QuietWindow) Accept(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.last.IsZero() && now.Sub(q.last) <= q.window {
		return false
	}
	q.last = now
	return true
}

// Force restarts the window at now unconditionally.
func (q *QuietWindow) Force(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last = now
}
