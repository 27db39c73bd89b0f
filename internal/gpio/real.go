//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// RealReceiver watches the receiver line on a Linux GPIO character device.
type RealReceiver struct {
	chip *gpiocdev.Chip
	in   *gpiocdev.Line
	led  *gpiocdev.Line
	pon  *gpiocdev.Line
}

// NewRealReceiver requests the configured lines. When h is non-nil every
// edge on the input line is delivered to it from the gpiocdev event
// goroutine; with a nil h the line is only readable through Level.
// The PON line, if configured, is driven active to power the receiver.
func NewRealReceiver(cfg Config, h EdgeHandler) (*RealReceiver, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}
	r := &RealReceiver{chip: chip}

	if cfg.PONPin >= 0 {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(1)}
		if cfg.PONActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		r.pon, err = chip.RequestLine(cfg.PONPin, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request PON pin %d: %w", cfg.PONPin, err)
		}
	}

	if cfg.LEDPin >= 0 {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if cfg.LEDActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		r.led, err = chip.RequestLine(cfg.LEDPin, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request LED pin %d: %w", cfg.LEDPin, err)
		}
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, biasOption(cfg.Bias)}
	if h != nil {
		stamp := func(evt gpiocdev.LineEvent) dcf77.Millis { return toMillis(evt.Timestamp) }
		if cfg.Clock != nil {
			stamp = func(gpiocdev.LineEvent) dcf77.Millis { return cfg.Clock.Millis() }
		}
		opts = append(opts,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				level := dcf77.Low
				if evt.Type == gpiocdev.LineEventRisingEdge {
					level = dcf77.High
				}
				h(level, stamp(evt))
			}))
	}
	r.in, err = chip.RequestLine(cfg.Pin, opts...)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request input pin %d: %w", cfg.Pin, err)
	}

	return r, nil
}

func biasOption(bias string) gpiocdev.LineReqOption {
	switch bias {
	case "down":
		return gpiocdev.WithPullDown
	case "none":
		return gpiocdev.WithBiasDisabled
	}
	return gpiocdev.WithPullUp
}

// Level returns the current logical level of the input line.
func (r *RealReceiver) Level() (dcf77.Level, error) {
	v, err := r.in.Value()
	if err != nil {
		return dcf77.Low, fmt.Errorf("read input pin: %w", err)
	}
	if v != 0 {
		return dcf77.High, nil
	}
	return dcf77.Low, nil
}

// SetIndicator drives the LED line. It is a no-op without an LED pin.
func (r *RealReceiver) SetIndicator(on bool) error {
	if r.led == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := r.led.SetValue(v); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// Output lines are reconfigured as inputs before closing so the receiver
// and LED are left undriven across a restart.
func (r *RealReceiver) Close() error {
	var errs []error

	if r.in != nil {
		if err := r.in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input pin: %w", err))
		}
	}
	for name, l := range map[string]*gpiocdev.Line{"LED": r.led, "PON": r.pon} {
		if l == nil {
			continue
		}
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
