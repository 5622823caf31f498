// Package testutil provides deterministic time and token sources for
// tests. Runs wired with these produce byte-identical output.
package testutil

import (
	"sync"
	"time"
)

// Clock is a controllable wall clock. A zero-step clock is frozen: Now
// returns the same instant forever. With a step, each Now call
// advances the clock by that amount, returning the pre-advance value.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock creates a frozen clock.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// NewSteppingClock creates a clock advancing by step per Now call.
func NewSteppingClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the clock's current instant and advances by the step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds the clock to a new instant. Used for test reuse: the
// same scenario can run twice with identical timestamps.
func (c *Clock) Reset(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
