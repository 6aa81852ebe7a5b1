package reorder

import "time"

// DefaultFrameInterval caps hover recomputation at roughly one per display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Throttle admits at most one event per interval. The zero value admits everything.
type Throttle struct {
	interval time.Duration
	last     time.Time
}

// NewThrottle returns a throttle with the given interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: max(interval, 0)}
}

// Allow reports whether an event at now may run, recording it when it may.
func (t *Throttle) Allow(now time.Time) bool {
	if t == nil || t.interval <= 0 {
		return true
	}
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset forgets the last admitted event.
func (t *Throttle) Reset() {
	if t != nil {
		t.last = time.Time{}
	}
}
