// Package roundclock answers whether the current round has run long enough
// to be closed.
package roundclock

import (
	"time"
)

var now = time.Now

// Now returns the wall clock used for new rounds.
func Now() time.Time {
	return now()
}

// Clock records when the current round started.
type Clock struct {
	StartedAt time.Time
}

// New starts a clock at t.
func New(t time.Time) Clock {
	return Clock{StartedAt: t}
}

// Elapsed returns t - StartedAt. A t before the start yields 0 so a clock
// skew never makes a round look older than it is.
func (c Clock) Elapsed(t time.Time) time.Duration {
	if t.Before(c.StartedAt) {
		return 0
	}
	return t.Sub(c.StartedAt)
}

// IsDue reports whether at least interval has passed since the start.
func (c Clock) IsDue(t time.Time, interval time.Duration) bool {
	return c.Elapsed(t) >= interval
}

// Restart moves the start of the round to t.
func (c *Clock) Restart(t time.Time) {
	c.StartedAt = t
}
