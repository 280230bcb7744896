package main

import (
	"sync"
	"time"
)

// throttle limits widget updates to one per interval. Trace callbacks arrive
// on the frame goroutine, faster than the UI needs to redraw.
type throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

// Allow reports whether an update at now may proceed, and records it if so.
func (t *throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
