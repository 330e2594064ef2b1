package comment

import (
	"sync"
	"time"
)

// Clock hands out timestamps that never go backwards within a process, even
// if the wall clock is stepped back.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock returns a Clock over time.Now.
func NewClock() *Clock {
	return NewClockFunc(time.Now)
}

// NewClockFunc returns a Clock over an arbitrary time source. Tests use it to
// drive the wall clock by hand.
func NewClockFunc(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns max(source now, last returned value), in UTC with the monotonic
// reading stripped so values round-trip through storage unchanged.
func (c *Clock) Now() time.Time {
	t := c.now().UTC().Round(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
