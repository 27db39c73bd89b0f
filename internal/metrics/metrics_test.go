package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

func TestObserveAddsDeltas(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe(dcf77.Stats{PulsesAccepted: 10, PulsesRejected: 1, Resyncs: 1}, 10, dcf77.StateCollecting, false)
	m.Observe(dcf77.Stats{PulsesAccepted: 25, PulsesRejected: 1, Resyncs: 1, HourParityError: 1}, 25, dcf77.StateCollecting, true)

	if got := testutil.ToFloat64(m.pulses.WithLabelValues("accepted")); got != 25 {
		t.Errorf("accepted: got %v, want 25", got)
	}
	if got := testutil.ToFloat64(m.pulses.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.resyncs); got != 1 {
		t.Errorf("resyncs: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.parityErrors.WithLabelValues("hour")); got != 1 {
		t.Errorf("hour parity: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.counter); got != 25 {
		t.Errorf("counter: got %v, want 25", got)
	}
	if got := testutil.ToFloat64(m.indicator); got != 1 {
		t.Errorf("indicator: got %v, want 1", got)
	}
}

func TestObserveStateIsOneHot(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe(dcf77.Stats{}, 59, dcf77.StateDecodeAndPublish, false)

	for _, s := range states {
		want := 0.0
		if s == dcf77.StateDecodeAndPublish {
			want = 1
		}
		if got := testutil.ToFloat64(m.state.WithLabelValues(string(s))); got != want {
			t.Errorf("state %s: got %v, want %v", s, got, want)
		}
	}
}

func TestObserveMinute(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveMinute(dcf77.Minute{Time: dcf77.TimeReference{UTC: 1792327020}})
	if got := testutil.ToFloat64(m.lastMinute); got != 1792327020 {
		t.Errorf("last minute: got %v", got)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetMQTTConnected(true)
	if got := testutil.ToFloat64(m.mqttConnected); got != 1 {
		t.Errorf("connected: got %v, want 1", got)
	}
	m.SetMQTTConnected(false)
	if got := testutil.ToFloat64(m.mqttConnected); got != 0 {
		t.Errorf("connected: got %v, want 0", got)
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		prev, cur uint64
		want      float64
	}{
		{0, 0, 0},
		{3, 5, 2},
		{5, 3, 0},
	}
	for _, tt := range tests {
		if got := delta(tt.prev, tt.cur); got != tt.want {
			t.Errorf("delta(%d, %d): got %v, want %v", tt.prev, tt.cur, got, tt.want)
		}
	}
}

func TestRegistryGathers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(dcf77.Stats{FramesDecoded: 2}, 0, dcf77.StateAwaitSync, false)

	n, err := testutil.GatherAndCount(reg, "dcf77_frames_decoded_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}
