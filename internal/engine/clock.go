package engine

import "sync/atomic"

// Clock is a monotonic logical clock numbering reconciliation passes.
//
// Pass reports, logs and audit records are stamped with Clock.Next() so
// passes are ordered without wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though only the Reconciler's writer normally calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after a known sequence number, e.g.
// the last pass recorded in the audit store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
