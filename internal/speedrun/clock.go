package speedrun

import (
	"sync"
	"time"
)

// Clock is a monotonic millisecond time source.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the process monotonic clock.
type SystemClock struct {
	origin time.Time
}

// NewSystemClock creates a clock whose zero is the moment of the call.
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// NowMillis returns milliseconds elapsed since the clock was created.
// time.Since uses the monotonic reading embedded in origin.
func (c *SystemClock) NowMillis() int64 {
	return time.Since(c.origin).Milliseconds()
}

// ManualClock is a clock driven by the caller, used for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NowMillis returns the current manual time.
func (c *ManualClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to ms.
func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

// Advance moves the clock forward by ms.
func (c *ManualClock) Advance(ms int64) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}
