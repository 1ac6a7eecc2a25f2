package engine

import (
	"sync/atomic"
	"time"
)

// TimeSource returns the current time in milliseconds.
type TimeSource func() int64

// WallTime is the default TimeSource: Unix milliseconds.
func WallTime() int64 {
	return time.Now().UnixMilli()
}

// Clock assigns commit timestamps.
//
// Timestamps are strictly increasing: Next returns max(now, last+1), so
// two commits never share a timestamp even when the wall clock stalls or
// steps backwards.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The engine's single-writer commit path means only one goroutine
// typically calls Next().
type Clock struct {
	now  TimeSource
	last atomic.Int64
}

// NewClock creates a clock reading from now. A nil now uses WallTime.
func NewClock(now TimeSource) *Clock {
	if now == nil {
		now = WallTime
	}
	return &Clock{now: now}
}

// Next returns the next timestamp.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	for {
		last := c.last.Load()
		ts := c.now()
		if ts <= last {
			ts = last + 1
		}
		if c.last.CompareAndSwap(last, ts) {
			return ts
		}
	}
}

// Observe advances the clock so the next timestamp is after ts.
// Used when rebuilding from a log written by an earlier process.
func (c *Clock) Observe(ts int64) {
	for {
		last := c.last.Load()
		if ts <= last || c.last.CompareAndSwap(last, ts) {
			return
		}
	}
}

// Current returns the last timestamp handed out (or observed).
func (c *Clock) Current() int64 {
	return c.last.Load()
}

// Now reads the underlying time source without advancing the clock.
func (c *Clock) Now() int64 {
	return c.now()
}
