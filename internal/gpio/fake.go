package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// Edge is one scripted transition.
type Edge struct {
	Level dcf77.Level
	At    dcf77.Millis
}

// FakeReceiver is a test double that delivers scripted edges.
type FakeReceiver struct {
	mu      sync.Mutex
	handler EdgeHandler
	level   dcf77.Level

	// Clock stamps edges delivered by Step.
	Clock dcf77.Clock

	// LED records every SetIndicator call.
	LED []bool

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Level()
	ReadError error

	// IndicatorError, if set, will be returned by SetIndicator()
	IndicatorError error
}

// NewFakeReceiver creates a FakeReceiver delivering edges to h.
func NewFakeReceiver(h EdgeHandler) *FakeReceiver {
	return &FakeReceiver{handler: h}
}

// Emit delivers one edge to the handler, as the kernel event goroutine would.
func (f *FakeReceiver) Emit(level dcf77.Level, at dcf77.Millis) error {
	f.mu.Lock()
	h := f.handler
	f.level = level
	closed := f.Closed
	f.mu.Unlock()

	if closed {
		return errors.New("receiver closed")
	}
	if h != nil {
		h(level, at)
	}
	return nil
}

// Step delivers one edge stamped with the current Clock reading.
func (f *FakeReceiver) Step(level dcf77.Level) error {
	if f.Clock == nil {
		return errors.New("fake receiver has no clock")
	}
	return f.Emit(level, f.Clock.Millis())
}

// Play emits every edge in order.
func (f *FakeReceiver) Play(edges []Edge) error {
	for _, e := range edges {
		if err := f.Emit(e.Level, e.At); err != nil {
			return err
		}
	}
	return nil
}

// Level returns the level of the last emitted edge.
func (f *FakeReceiver) Level() (dcf77.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return dcf77.Low, f.ReadError
	}
	return f.level, nil
}

// SetIndicator records the LED state.
func (f *FakeReceiver) SetIndicator(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.IndicatorError != nil {
		return f.IndicatorError
	}
	f.LED = append(f.LED, on)
	return nil
}

// Close marks the receiver as closed.
func (f *FakeReceiver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
