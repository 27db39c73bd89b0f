// Package dcf77 contains the pure DCF77 decode pipeline: pulse sampling,
// frame assembly, frame decoding and timestamp derivation.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injected as Millis values.
package dcf77

import "time"

// Millis is a wrapping millisecond count from an arbitrary monotonic origin.
// Only differences between two Millis values are meaningful.
type Millis uint32

// Since returns the elapsed milliseconds from earlier to m, wrapping safely.
func (m Millis) Since(earlier Millis) Millis {
	return m - earlier
}

// Level is the logical level of the receiver output line.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

// Protocol constants. These are fixed by the DCF77 broadcast and are not
// runtime-tunable.
const (
	MinPulse      Millis = 100  // shortest accepted pulse (bit 0 is ~100ms)
	MaxPulse      Millis = 220  // accepted pulses are strictly shorter
	MinuteGap     Millis = 1700 // silence between pulse starts that marks second 0
	ExtendPadding Millis = 5    // added to every measured pulse

	// SyncBit is the "start of encoded time" bit, always transmitted as 1.
	SyncBit = 20
	// FrameSeconds is the number of data bits in one minute.
	FrameSeconds = 59
	// overrunLimit is the last counter value tolerated before a reset.
	overrunLimit = 61
)

// Bit offsets and widths of the DCF77 time code.
const (
	civilWarningOffset = 1
	civilWarningWidth  = 14

	bitR  = 15 // backup antenna in use
	bitA1 = 16 // DST change announced
	bitZ1 = 17 // CEST in effect
	bitZ2 = 18 // CET in effect
	bitA2 = 19 // leap second announced

	minuteOffset  = 21
	minuteWidth   = 7
	minuteParity  = 28
	hourOffset    = 29
	hourWidth     = 6
	hourParity    = 35
	dayOffset     = 36
	dayWidth      = 6
	weekdayOffset = 42
	weekdayWidth  = 3
	monthOffset   = 45
	monthWidth    = 5
	yearOffset    = 50
	yearWidth     = 8
	dateParity    = 58
)

// PulseMeasurement is one edge observation handed from the Sampler to the
// Assembler. A start measurement has Ended == false; an end measurement
// carries the padded Duration.
type PulseMeasurement struct {
	Start    Millis
	End      Millis
	Duration Millis
	Ended    bool
}

// Flags are the single-bit indicators broadcast in seconds 15..19.
type Flags struct {
	R  bool // call bit: backup antenna
	A1 bool // announcement of a CET/CEST change
	Z1 bool // CEST (daylight saving) in effect
	Z2 bool // CET in effect
	A2 bool // announcement of a leap second
}

// Zone names the broadcast time zone: "CEST" when Z1 is set, else "CET".
func (f Flags) Zone() string {
	if f.Z1 {
		return "CEST"
	}
	return "CET"
}

// ParityMask reports which parity groups failed. Bits OR-combine.
type ParityMask uint8

const (
	ParityMinute ParityMask = 1
	ParityHour   ParityMask = 2
	ParityDate   ParityMask = 4
)

// DecodedFrame holds the raw fields of one minute. Calendar values are BCD.
// Fields are populated even when ParityErrors is non-zero.
type DecodedFrame struct {
	Minute       uint8
	Hour         uint8
	Day          uint8
	Weekday      uint8
	Month        uint8
	Year         uint8
	Flags        Flags
	CivilWarning uint16
	ParityErrors ParityMask
}

// Fields is the decimal calendar view of a DecodedFrame.
type Fields struct {
	Year    int // full year, 2000-based
	Month   int
	Day     int
	Weekday int // 1 = Monday .. 7 = Sunday
	Hour    int
	Minute  int
}

// Fields converts the BCD calendar values to decimal.
func (f DecodedFrame) Fields() Fields {
	return Fields{
		Year:    2000 + int(BCDToDec(f.Year)),
		Month:   int(BCDToDec(f.Month)),
		Day:     int(BCDToDec(f.Day)),
		Weekday: int(BCDToDec(f.Weekday)),
		Hour:    int(BCDToDec(f.Hour)),
		Minute:  int(BCDToDec(f.Minute)),
	}
}

// TimeReference holds the three derived timestamps in epoch seconds.
// Local is the broadcast civil time read as if it were UTC.
type TimeReference struct {
	Local    int64
	Regional int64
	UTC      int64
}

// IsZero reports whether no timestamps are set.
func (t TimeReference) IsZero() bool {
	return t.Local == 0 && t.Regional == 0 && t.UTC == 0
}

// Time returns the UTC timestamp as a time.Time.
func (t TimeReference) Time() time.Time {
	return time.Unix(t.UTC, 0).UTC()
}

// Minute is the payload returned by Poll when a validated minute begins.
type Minute struct {
	StartOfMinute Millis
	Frame         DecodedFrame
	Time          TimeReference
	Bits          FrameBuffer
}

// State is the assembler's position in the minute cycle.
type State string

const (
	StateAwaitSync        State = "AWAIT_SYNC"
	StateCollecting       State = "COLLECTING"
	StateDecodeAndPublish State = "DECODE_AND_PUBLISH"
)

// Stats counts the silently-recovered conditions of the pipeline.
type Stats struct {
	PulsesAccepted    uint64
	PulsesRejected    uint64
	PulsesDropped     uint64
	Resyncs           uint64
	Overruns          uint64
	FramesDecoded     uint64
	MinutesPublished  uint64
	MinuteParityError uint64
	HourParityError   uint64
	DateParityError   uint64
}
