package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	State         string          `json:"state"`
	Counter       int             `json:"counter"`
	Synced        bool            `json:"synced"`
	Indicator     bool            `json:"indicator"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	LastMinute    *LastMinuteJSON `json:"last_minute,omitempty"`
	Stats         StatsJSON       `json:"stats"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// LastMinuteJSON describes the most recently decoded minute.
type LastMinuteJSON struct {
	UTC        string `json:"utc"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Weekday    int    `json:"weekday"`
	Zone       string `json:"zone"`
	Bits       string `json:"bits"`
	ReceivedAt string `json:"received_at"`
	AgeSeconds int64  `json:"age_seconds"`
}

// StatsJSON is the JSON representation of decoder counters.
type StatsJSON struct {
	PulsesAccepted   uint64 `json:"pulses_accepted"`
	PulsesRejected   uint64 `json:"pulses_rejected"`
	PulsesDropped    uint64 `json:"pulses_dropped"`
	Resyncs          uint64 `json:"resyncs"`
	Overruns         uint64 `json:"overruns"`
	FramesDecoded    uint64 `json:"frames_decoded"`
	MinutesPublished uint64 `json:"minutes_published"`
	MinuteParity     uint64 `json:"minute_parity_errors"`
	HourParity       uint64 `json:"hour_parity_errors"`
	DateParity       uint64 `json:"date_parity_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	Chip        string `json:"chip"`
	Pin         int    `json:"pin"`
	CarrierOff  string `json:"carrier_off_level"`
	LEDPin      int    `json:"led_pin"`
}

func buildLastMinute(snap Snapshot) *LastMinuteJSON {
	if !snap.Synced() {
		return nil
	}
	m := snap.LastMinute
	f := m.Frame.Fields()
	return &LastMinuteJSON{
		UTC:        m.Time.Time().Format(time.RFC3339),
		Date:       fmt.Sprintf("%04d-%02d-%02d", f.Year, f.Month, f.Day),
		Time:       fmt.Sprintf("%02d:%02d", f.Hour, f.Minute),
		Weekday:    f.Weekday,
		Zone:       m.Frame.Flags.Zone(),
		Bits:       m.Bits.Format(dcf77.FrameSeconds),
		ReceivedAt: snap.LastMinuteAt.UTC().Format(time.RFC3339),
		AgeSeconds: int64(snap.Now.Sub(snap.LastMinuteAt).Truncate(time.Second).Seconds()),
	}
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	st := snap.Stats

	return StatusInner{
		State:         state,
		Counter:       snap.Counter,
		Synced:        snap.Synced(),
		Indicator:     snap.Indicator,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		LastMinute:    buildLastMinute(snap),
		Stats: StatsJSON{
			PulsesAccepted:   st.PulsesAccepted,
			PulsesRejected:   st.PulsesRejected,
			PulsesDropped:    st.PulsesDropped,
			Resyncs:          st.Resyncs,
			Overruns:         st.Overruns,
			FramesDecoded:    st.FramesDecoded,
			MinutesPublished: st.MinutesPublished,
			MinuteParity:     st.MinuteParityError,
			HourParity:       st.HourParityError,
			DateParity:       st.DateParityError,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Chip:        snap.Config.Chip,
			Pin:         snap.Config.Pin,
			CarrierOff:  snap.Config.CarrierOff,
			LEDPin:      snap.Config.LEDPin,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
