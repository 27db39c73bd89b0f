package dcf77

// Indicator mirrors the pulse-in-progress state, typically to an LED.
type Indicator interface {
	SetIndicator(on bool) error
}

// Assembler turns pulse measurements into decoded minutes. Poll must be
// called from a single goroutine at least every 100ms.
type Assembler struct {
	sampler   *Sampler
	indicator Indicator
	mirrored  bool
	mirrorSet bool

	buf     FrameBuffer
	counter int
	syncBit uint8
	state   State

	lastPulseStart Millis // start of the last accepted pulse
	minuteMark     bool
	startOfMinute  Millis
	timeProcessed  bool

	frame DecodedFrame
	time  TimeReference
	bits  FrameBuffer

	stats Stats
}

// NewAssembler creates an Assembler consuming from sampler. indicator may be nil.
func NewAssembler(sampler *Sampler, indicator Indicator) *Assembler {
	return &Assembler{
		sampler:   sampler,
		indicator: indicator,
		state:     StateAwaitSync,
	}
}

// Poll consumes pending measurements. It returns the decoded minute and true
// at the pulse start of the second following a parity-clean frame; otherwise
// it returns false.
func (a *Assembler) Poll() (Minute, bool) {
	for {
		if a.minuteMark && a.timeProcessed {
			a.timeProcessed = false
			a.stats.MinutesPublished++
			return Minute{
				StartOfMinute: a.startOfMinute,
				Frame:         a.frame,
				Time:          a.time,
				Bits:          a.bits,
			}, true
		}

		a.mirror()

		select {
		case m := <-a.sampler.pulses:
			a.consume(m)
		default:
			return Minute{}, false
		}
	}
}

func (a *Assembler) mirror() {
	if a.indicator == nil {
		return
	}
	on := a.sampler.Indicator()
	if a.mirrorSet && on == a.mirrored {
		return
	}
	// A failed write is retried on the next poll.
	if err := a.indicator.SetIndicator(on); err == nil {
		a.mirrored = on
		a.mirrorSet = true
	}
}

func (a *Assembler) consume(m PulseMeasurement) {
	if !m.Ended {
		a.minuteMark = m.Start.Since(a.lastPulseStart) > MinuteGap
		if a.minuteMark {
			a.startOfMinute = m.Start
		}
		return
	}

	if m.Duration < MinPulse || m.Duration >= MaxPulse {
		a.stats.PulsesRejected++
		return
	}
	a.stats.PulsesAccepted++

	if a.minuteMark {
		a.counter = 0
		a.timeProcessed = false
		a.buf.Clear()
		a.state = StateCollecting
		a.stats.Resyncs++
	}

	a.lastPulseStart = m.Start

	// The previous minute's result stays readable for one second.
	if a.counter == 1 {
		a.minuteMark = false
		a.frame.ParityErrors = 0
		a.time = TimeReference{}
	}

	bit := uint8(m.Duration/100) - 1

	if err := a.buf.SetBit(a.counter, bit); err != nil {
		a.overrun()
		return
	}
	if a.counter == SyncBit {
		a.syncBit = bit
	}

	if a.counter > overrunLimit {
		a.overrun()
	} else {
		a.counter++
	}

	if a.counter == FrameSeconds && a.syncBit == 1 {
		a.decode()
	}
}

func (a *Assembler) overrun() {
	// The decoded result belongs to a minute whose boundary was never seen.
	a.timeProcessed = false
	a.counter = 0
	a.state = StateAwaitSync
	a.stats.Overruns++
}

func (a *Assembler) decode() {
	a.syncBit = 0
	a.bits = a.buf
	a.frame = Decode(a.buf)
	a.stats.FramesDecoded++

	if a.frame.ParityErrors&ParityMinute != 0 {
		a.stats.MinuteParityError++
	}
	if a.frame.ParityErrors&ParityHour != 0 {
		a.stats.HourParityError++
	}
	if a.frame.ParityErrors&ParityDate != 0 {
		a.stats.DateParityError++
	}

	if a.frame.ParityErrors != 0 {
		a.state = StateAwaitSync
		return
	}
	a.time = BuildTime(a.frame.Fields(), a.frame.Flags.Z1)
	a.timeProcessed = true
	a.state = StateDecodeAndPublish
}

// Time returns the timestamps of the last published minute. They are zeroed
// one second into the following frame.
func (a *Assembler) Time() TimeReference {
	return a.time
}

// Frame returns the most recently decoded frame, including failed ones.
func (a *Assembler) Frame() DecodedFrame {
	return a.frame
}

// Bits returns a copy of the buffer that produced the most recent decode.
func (a *Assembler) Bits() FrameBuffer {
	return a.bits
}

// Counter returns the current second index.
func (a *Assembler) Counter() int {
	return a.counter
}

// State returns the position in the minute cycle.
func (a *Assembler) State() State {
	return a.state
}

// Stats returns a copy of the recovery counters.
func (a *Assembler) Stats() Stats {
	s := a.stats
	s.PulsesDropped = a.sampler.Dropped()
	return s
}

// Indicator reports whether a pulse is in progress.
func (a *Assembler) Indicator() bool {
	return a.sampler.Indicator()
}
