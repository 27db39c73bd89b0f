// Package mqtt publishes decoded minutes and lifecycle events, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// DefaultTopicPrefix is the topic root used when none is configured.
const DefaultTopicPrefix = "time/dcf77/receiver"

// MinuteTopic returns the topic for decoded minutes under prefix.
func MinuteTopic(prefix string) string {
	return prefix + "/minute"
}

// SystemTopic returns the topic for system lifecycle events under prefix.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a decoded minute to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(m dcf77.Minute) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a decoded minute.
type Payload struct {
	DCF77 MinutePayload `json:"dcf77"`
}

// MinutePayload contains the decoded minute.
type MinutePayload struct {
	Timestamp    string       `json:"timestamp"`
	Local        int64        `json:"local"`
	Regional     int64        `json:"regional"`
	UTC          int64        `json:"utc"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	Weekday      int          `json:"weekday"`
	Zone         string       `json:"zone"`
	Flags        FlagsPayload `json:"flags"`
	CivilWarning uint16       `json:"civil_warning"`
}

// FlagsPayload carries the broadcast flag bits.
type FlagsPayload struct {
	R  bool `json:"r"`
	A1 bool `json:"a1"`
	Z1 bool `json:"z1"`
	Z2 bool `json:"z2"`
	A2 bool `json:"a2"`
}

// FormatPayload creates the JSON payload for a decoded minute.
func FormatPayload(m dcf77.Minute) ([]byte, error) {
	f := m.Frame.Fields()
	payload := Payload{
		DCF77: MinutePayload{
			Timestamp:    m.Time.Time().Format(time.RFC3339),
			Local:        m.Time.Local,
			Regional:     m.Time.Regional,
			UTC:          m.Time.UTC,
			Date:         fmt.Sprintf("%04d-%02d-%02d", f.Year, f.Month, f.Day),
			Time:         fmt.Sprintf("%02d:%02d", f.Hour, f.Minute),
			Weekday:      f.Weekday,
			Zone:         m.Frame.Flags.Zone(),
			CivilWarning: m.Frame.CivilWarning,
			Flags: FlagsPayload{
				R:  m.Frame.Flags.R,
				A1: m.Frame.Flags.A1,
				Z1: m.Frame.Flags.Z1,
				Z2: m.Frame.Flags.Z2,
				A2: m.Frame.Flags.A2,
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
