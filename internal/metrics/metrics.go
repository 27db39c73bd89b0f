// Package metrics exports decoder counters to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

const namespace = "dcf77"

var states = []dcf77.State{dcf77.StateAwaitSync, dcf77.StateCollecting, dcf77.StateDecodeAndPublish}

// Metrics holds the Prometheus collectors. The decoder keeps its own
// cumulative Stats, so Observe adds only the difference since the last call.
type Metrics struct {
	pulses        *prometheus.CounterVec // by result: accepted, rejected, dropped
	resyncs       prometheus.Counter
	overruns      prometheus.Counter
	framesDecoded prometheus.Counter
	minutes       prometheus.Counter
	parityErrors  *prometheus.CounterVec // by field: minute, hour, date
	counter       prometheus.Gauge
	state         *prometheus.GaugeVec
	indicator     prometheus.Gauge
	lastMinute    prometheus.Gauge
	mqttConnected prometheus.Gauge

	mu   sync.Mutex
	last dcf77.Stats
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		pulses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pulses_total",
			Help:      "Carrier pulses measured, by classification result",
		}, []string{"result"}),
		resyncs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Minute marks that reset the bit counter",
		}),
		overruns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overruns_total",
			Help:      "Frames abandoned because no minute mark arrived",
		}),
		framesDecoded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Complete frames with a valid sync bit that were decoded",
		}),
		minutes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "minutes_published_total",
			Help:      "Parity-clean minutes handed to consumers",
		}),
		parityErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parity_errors_total",
			Help:      "Decoded frames failing parity, by field group",
		}, []string{"field"}),
		counter: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bit_counter",
			Help:      "Bits collected in the current frame",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Decoder state, 1 for the active state",
		}, []string{"state"}),
		indicator: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pulse_active",
			Help:      "1 while a carrier pulse is in progress",
		}),
		lastMinute: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_minute_utc_seconds",
			Help:      "UTC epoch seconds of the last published minute",
		}),
		mqttConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 while the MQTT broker connection is up",
		}),
	}
}

// Observe updates the collectors from a decoder snapshot.
func (m *Metrics) Observe(stats dcf77.Stats, counter int, state dcf77.State, indicator bool) {
	m.mu.Lock()
	prev := m.last
	m.last = stats
	m.mu.Unlock()

	m.pulses.WithLabelValues("accepted").Add(delta(prev.PulsesAccepted, stats.PulsesAccepted))
	m.pulses.WithLabelValues("rejected").Add(delta(prev.PulsesRejected, stats.PulsesRejected))
	m.pulses.WithLabelValues("dropped").Add(delta(prev.PulsesDropped, stats.PulsesDropped))
	m.resyncs.Add(delta(prev.Resyncs, stats.Resyncs))
	m.overruns.Add(delta(prev.Overruns, stats.Overruns))
	m.framesDecoded.Add(delta(prev.FramesDecoded, stats.FramesDecoded))
	m.minutes.Add(delta(prev.MinutesPublished, stats.MinutesPublished))
	m.parityErrors.WithLabelValues("minute").Add(delta(prev.MinuteParityError, stats.MinuteParityError))
	m.parityErrors.WithLabelValues("hour").Add(delta(prev.HourParityError, stats.HourParityError))
	m.parityErrors.WithLabelValues("date").Add(delta(prev.DateParityError, stats.DateParityError))

	m.counter.Set(float64(counter))
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(string(s)).Set(v)
	}
	m.indicator.Set(boolGauge(indicator))
}

// ObserveMinute records the timestamp of a published minute.
func (m *Metrics) ObserveMinute(minute dcf77.Minute) {
	m.lastMinute.Set(float64(minute.Time.UTC))
}

// SetMQTTConnected records the broker connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	m.mqttConnected.Set(boolGauge(connected))
}

// delta never goes negative; a reset counter contributes nothing.
func delta(prev, cur uint64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur - prev)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
