package pipeline

import "sync/atomic"

// Clock is the monotonic logical clock behind audit sequence numbers.
// Every stamped result gets a strictly increasing seq, so the audit
// trail has a total order independent of wall time and scheduling.
//
// Safe for concurrent use, though stamping is single-threaded after
// the fan-out phase.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known position, e.g. the
// highest sequence already persisted.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
