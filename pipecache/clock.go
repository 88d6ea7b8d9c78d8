package pipecache

import (
	"sync"
	"time"
)

// Clock is a source of the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to. Tests use it to
// drive the reconcile throttle deterministically.
//
// ManualClock is safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Stopwatch measures time elapsed since its last restart.
type Stopwatch struct {
	clock Clock
	start time.Time
}

// NewStopwatch creates a stopwatch started now.
func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Stopwatch{clock: clock, start: clock.Now()}
}

// Restart resets the elapsed time to zero.
func (s *Stopwatch) Restart() { s.start = s.clock.Now() }

// Elapsed returns the time since the last restart.
func (s *Stopwatch) Elapsed() time.Duration { return s.clock.Now().Sub(s.start) }
