package dcf77

import (
	"sync/atomic"
	"time"
)

// Clock provides a monotonic millisecond count. This interface allows for
// testing with deterministic timestamps.
type Clock interface {
	Millis() Millis
}

type systemClock struct {
	origin time.Time
}

func (c systemClock) Millis() Millis {
	return Millis(time.Since(c.origin).Milliseconds())
}

// SystemClock returns a Clock counting from the moment of the call.
func SystemClock() Clock {
	return systemClock{origin: time.Now()}
}

// ManualClock is a test clock advanced explicitly. Safe for concurrent use.
type ManualClock struct {
	now atomic.Uint32
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start Millis) *ManualClock {
	c := &ManualClock{}
	c.now.Store(uint32(start))
	return c
}

// Millis returns the current reading.
func (c *ManualClock) Millis() Millis {
	return Millis(c.now.Load())
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d Millis) {
	c.now.Add(uint32(d))
}

// Set moves the clock to an absolute reading.
func (c *ManualClock) Set(m Millis) {
	c.now.Store(uint32(m))
}
