package testutil

import "sync"

// SteppedClock is a deterministic millisecond time source for tests.
//
// The first call to Now() returns start, every later call advances by step.
// Pass c.Now wherever a func() int64 time source is expected (for example
// engine.WithTimeSource). It can be reset so the same scenario produces
// identical timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppedClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	calls int64
}

// NewSteppedClock creates a clock that starts at start and advances by step.
// A step below 1 is treated as 1.
func NewSteppedClock(start, step int64) *SteppedClock {
	if step < 1 {
		step = 1
	}
	return &SteppedClock{start: start, step: step}
}

// Now returns the next timestamp.
func (c *SteppedClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.start + c.calls*c.step
	c.calls++
	return ts
}

// Peek returns the timestamp the next call to Now() will return.
func (c *SteppedClock) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start + c.calls*c.step
}

// Reset rewinds the clock so the next call to Now() returns start.
func (c *SteppedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
