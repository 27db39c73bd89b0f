// Package gpio connects the DCF77 receiver line to the decoder.
// The real implementation uses the Linux GPIO character device and delivers
// edges from the kernel event queue with kernel timestamps.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// EdgeHandler receives one level transition. at is a monotonic timestamp.
type EdgeHandler func(level dcf77.Level, at dcf77.Millis)

// Receiver is the receiver input line plus its optional outputs.
type Receiver interface {
	// Level returns the current logical level of the input line.
	Level() (dcf77.Level, error)

	// SetIndicator drives the LED output, if configured.
	SetIndicator(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Config describes the receiver wiring. A negative pin disables that line.
type Config struct {
	Chip         string
	Pin          int
	Bias         string // "up", "down" or "none"
	LEDPin       int
	LEDActiveLow bool
	PONPin       int
	PONActiveLow bool

	// Clock, when set, stamps edges on receipt instead of using the
	// kernel event timestamp.
	Clock dcf77.Clock
}

// Default pin (BCM numbering).
const DefaultPin = 17

func toMillis(d time.Duration) dcf77.Millis {
	return dcf77.Millis(d / time.Millisecond)
}
