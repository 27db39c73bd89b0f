//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// RealReceiver is not available on non-Linux platforms.
type RealReceiver struct{}

// NewRealReceiver returns an error on non-Linux platforms.
func NewRealReceiver(cfg Config, h EdgeHandler) (*RealReceiver, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Level is not implemented on non-Linux platforms.
func (r *RealReceiver) Level() (dcf77.Level, error) {
	return dcf77.Low, errors.New("gpio: not supported")
}

// SetIndicator is not implemented on non-Linux platforms.
func (r *RealReceiver) SetIndicator(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReceiver) Close() error {
	return nil
}
