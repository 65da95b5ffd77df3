package chat

import (
	"sync"
	"time"
)

// clock hands out strictly increasing UTC timestamps at the microsecond
// resolution postgres stores, so messages appended back to back keep
// their order even when the wall clock stalls or steps back.
type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
