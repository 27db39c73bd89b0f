// Package status provides a thread-safe status tracker for the dcf77-sensor daemon.
// It is read by the HTTP handlers and the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Chip        string
	Pin         int
	CarrierOff  string // "high" or "low"
	LEDPin      int    // negative when unused
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         dcf77.State
	Counter       int
	Stats         dcf77.Stats
	Indicator     bool
	LastMinute    dcf77.Minute
	LastMinuteAt  time.Time // zero until the first minute is decoded
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Synced reports whether at least one minute has been decoded.
func (s Snapshot) Synced() bool {
	return !s.LastMinuteAt.IsZero()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     dcf77.StateAwaitSync,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the decoder state, bit counter, statistics and indicator.
// Called from runLoop on every tick.
func (t *Tracker) Update(state dcf77.State, counter int, stats dcf77.Stats, indicator bool) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Counter = counter
	t.snap.Stats = stats
	t.snap.Indicator = indicator
	t.mu.Unlock()
}

// SetMinute records the most recently decoded minute and when it arrived.
func (t *Tracker) SetMinute(m dcf77.Minute, at time.Time) {
	t.mu.Lock()
	t.snap.LastMinute = m
	t.snap.LastMinuteAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
