package store

import (
	"sync"
	"time"
)

// monotonicClock hands out strictly increasing timestamps. Ties with the
// previous reading are broken by bumping one nanosecond.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *monotonicClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
