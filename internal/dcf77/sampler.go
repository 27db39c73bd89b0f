package dcf77

import "sync/atomic"

// DefaultQueueSize is the default capacity of the sampler's hand-off queue.
// Two measurements are produced per second.
const DefaultQueueSize = 64

// Sampler measures pulse widths from receiver line edges. OnEdge runs in the
// edge-notification context; everything it shares with the Assembler is
// either an immutable PulseMeasurement sent on the queue or an atomic.
// Minute gaps are judged by the Assembler from the queued start times.
type Sampler struct {
	carrierOff Level
	pulses     chan PulseMeasurement

	// owned by the edge context
	pulseStart Millis

	indicator atomic.Bool
	dropped   atomic.Uint64
}

// NewSampler creates a Sampler. carrierOff is the line level the receiver
// drives while the carrier is reduced (the pulse). queueSize <= 0 selects
// DefaultQueueSize.
func NewSampler(carrierOff Level, queueSize int) *Sampler {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Sampler{
		carrierOff: carrierOff,
		pulses:     make(chan PulseMeasurement, queueSize),
	}
}

// OnEdge records one level transition observed at now. It never blocks:
// when the queue is full the measurement is dropped and counted.
func (s *Sampler) OnEdge(level Level, now Millis) {
	if level == s.carrierOff {
		s.pulseStart = now
		s.indicator.Store(true)
		s.send(PulseMeasurement{Start: now})
		return
	}

	s.indicator.Store(false)
	s.send(PulseMeasurement{
		Start:    s.pulseStart,
		End:      now,
		Duration: now.Since(s.pulseStart) + ExtendPadding,
		Ended:    true,
	})
}

func (s *Sampler) send(m PulseMeasurement) {
	select {
	case s.pulses <- m:
	default:
		s.dropped.Add(1)
	}
}

// Indicator reports whether a pulse is currently in progress.
func (s *Sampler) Indicator() bool {
	return s.indicator.Load()
}

// Dropped returns the number of measurements lost to a full queue.
func (s *Sampler) Dropped() uint64 {
	return s.dropped.Load()
}

// CarrierOff returns the level treated as pulse start.
func (s *Sampler) CarrierOff() Level {
	return s.carrierOff
}
