package testutil

import (
	"sync"
	"time"
)

// DefaultFetchStep is the interval between successive fetch times.
const DefaultFetchStep = time.Second

// FetchClock hands out deterministic, strictly increasing fetch times for
// ingestion tests.
//
// The first call to Next returns the base time; each later call adds the
// step. Reset rewinds to the base so a scenario can be replayed with
// identical fetch dates.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FetchClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int64
}

// NewFetchClock creates a clock starting at the unix millisecond baseMillis
// and advancing by DefaultFetchStep.
func NewFetchClock(baseMillis int64) *FetchClock {
	return &FetchClock{base: time.UnixMilli(baseMillis), step: DefaultFetchStep}
}

// WithStep sets the interval between fetch times and returns the clock.
func (c *FetchClock) WithStep(step time.Duration) *FetchClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
	return c
}

// Next returns the next fetch time.
func (c *FetchClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Current returns the last time Next returned, or the zero time if Next has
// not been called.
func (c *FetchClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		return time.Time{}
	}
	return c.base.Add(time.Duration(c.n-1) * c.step)
}

// Reset rewinds the clock so the next call to Next returns the base time.
func (c *FetchClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
