// Command dcf77-sensor decodes the DCF77 time signal from a receiver module
// on a GPIO line and publishes each validated minute to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/sweeney/dcf77-sensor/internal/config"
	"github.com/sweeney/dcf77-sensor/internal/dcf77"
	"github.com/sweeney/dcf77-sensor/internal/gpio"
	"github.com/sweeney/dcf77-sensor/internal/logging"
	"github.com/sweeney/dcf77-sensor/internal/metrics"
	"github.com/sweeney/dcf77-sensor/internal/mqtt"
	"github.com/sweeney/dcf77-sensor/internal/status"
	"github.com/sweeney/dcf77-sensor/internal/web"
)

const appName = "dcf77-sensor"

func main() {
	cfg, printLevel, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(2)
	}

	log, err := logging.New(appName, cfg.Log.Level, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(2)
	}

	if err := run(cfg, printLevel, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// parseFlags loads the optional config file and applies explicitly set
// flags over it.
func parseFlags(args []string) (config.Config, bool, error) {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	def := config.Default()

	configPath := fs.String("config", "", "YAML config file")
	chip := fs.String("chip", def.GPIO.Chip, "GPIO chip name")
	pin := fs.Int("pin", def.GPIO.Pin, "BCM pin number of the receiver output")
	ledPin := fs.Int("led-pin", def.GPIO.LEDPin, "BCM pin number of the pulse LED (-1 to disable)")
	ponPin := fs.Int("pon-pin", def.GPIO.PONPin, "BCM pin number of the receiver power-on line (-1 to disable)")
	poll := fs.Duration("poll", def.Poll, "Decoder polling interval")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", def.Log.Level, "Log level (debug, info, warn, error)")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	printLevel := fs.Bool("print-level", false, "Print the current receiver line level and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, false, err
		}
		cfg = loaded
	}

	if fs.Changed("chip") {
		cfg.GPIO.Chip = *chip
	}
	if fs.Changed("pin") {
		cfg.GPIO.Pin = *pin
	}
	if fs.Changed("led-pin") {
		cfg.GPIO.LEDPin = *ledPin
	}
	if fs.Changed("pon-pin") {
		cfg.GPIO.PONPin = *ponPin
	}
	if fs.Changed("poll") {
		cfg.Poll = *poll
	}
	if fs.Changed("broker") {
		cfg.MQTT.Broker = *broker
	}
	if fs.Changed("http") {
		cfg.HTTP = *httpAddr
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if fs.Changed("heartbeat") {
		cfg.Heartbeat = *heartbeat
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, err
	}
	return cfg, *printLevel, nil
}

func run(cfg config.Config, printLevel bool, log zerolog.Logger) error {
	carrierOffHigh, err := cfg.GPIO.CarrierOffHigh()
	if err != nil {
		return err
	}
	carrierOff := dcf77.Low
	if carrierOffHigh {
		carrierOff = dcf77.High
	}

	gcfg := gpio.Config{
		Chip:         cfg.GPIO.Chip,
		Pin:          cfg.GPIO.Pin,
		Bias:         cfg.GPIO.Bias,
		LEDPin:       cfg.GPIO.LEDPin,
		LEDActiveLow: cfg.GPIO.LEDActiveLow,
		PONPin:       cfg.GPIO.PONPin,
		PONActiveLow: cfg.GPIO.PONActiveLow,
	}
	if cfg.GPIO.SoftwareTimestamps {
		gcfg.Clock = dcf77.SystemClock()
	}

	// Print level mode
	if printLevel {
		receiver, err := gpio.NewRealReceiver(gcfg, nil)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer receiver.Close()
		level, err := receiver.Level()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(describeLevel(level, carrierOff))
		return nil
	}

	sampler := dcf77.NewSampler(carrierOff, cfg.GPIO.QueueSize)
	receiver, err := gpio.NewRealReceiver(gcfg, sampler.OnEdge)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer receiver.Close()
	assembler := dcf77.NewAssembler(sampler, receiver)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP,
		Chip:        cfg.GPIO.Chip,
		Pin:         cfg.GPIO.Pin,
		CarrierOff:  cfg.GPIO.CarrierOffLevel,
		LEDPin:      cfg.GPIO.LEDPin,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize MQTT
	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		var pub *mqtt.RealPublisher
		pub, err = mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			BufferSize:  cfg.MQTT.Buffer,
			OnReconnect: func() {
				ev := mqtt.SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}
				if err := pub.PublishSystem(ev); err != nil {
					log.Warn().Err(err).Msg("failed to publish reconnect event")
				}
			},
		}, log)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		publisher, mqttStatus = pub, pub
		tracker.SetMQTTConnected(pub.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	// Start HTTP status server
	var hub *web.Hub
	if cfg.HTTP != "" {
		hub = web.NewHub(log, func() web.Message {
			return web.Message{Type: "status", Data: status.FormatStatusEvent(tracker.Snapshot(), "", "")}
		})
		defer hub.Close()
		srv := web.New(cfg.HTTP, tracker, hub, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	log.Info().
		Str("chip", cfg.GPIO.Chip).
		Int("pin", cfg.GPIO.Pin).
		Str("carrier_off", cfg.GPIO.CarrierOffLevel).
		Dur("poll", cfg.Poll).
		Str("broker", cfg.MQTT.Broker).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sinks := loopSinks{
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		hub:        hub,
	}
	return runLoop(log, assembler, sinks, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// loopSinks are the consumers of decoder output. Everything except
// publisher may be nil.
type loopSinks struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	hub        *web.Hub
}

func runLoop(log zerolog.Logger, assembler *dcf77.Assembler, out loopSinks, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	box := newOutbox(log, outboxSize)
	defer box.close()

	lastHeartbeat := now()
	var (
		lastFrames    uint64
		lastCounter   = -1
		lastState     dcf77.State
		lastIndicator bool
	)

	for {
		select {
		case s := <-sig:
			log.Info().Stringer("signal", s).Msg("shutting down")
			// SHUTDOWN goes out after everything already queued.
			box.close()
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if out.tracker != nil {
				out.refreshConnected()
				snap := out.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := out.publisher.PublishSystem(event); err != nil {
				log.Warn().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			minute, ok := assembler.Poll()
			stats := assembler.Stats()

			if stats.FramesDecoded != lastFrames {
				lastFrames = stats.FramesDecoded
				frame := assembler.Frame()
				bits := assembler.Bits()
				log.Debug().Str("bits", bits.Format(dcf77.FrameSeconds)).Msg("frame complete")
				if frame.ParityErrors != 0 {
					log.Warn().
						Bool("minute", frame.ParityErrors&dcf77.ParityMinute != 0).
						Bool("hour", frame.ParityErrors&dcf77.ParityHour != 0).
						Bool("date", frame.ParityErrors&dcf77.ParityDate != 0).
						Msg("parity error, frame discarded")
				}
			}

			if ok {
				out.publishMinute(log, box, minute, t)
			}

			state, counter, indicator := assembler.State(), assembler.Counter(), assembler.Indicator()
			if out.tracker != nil {
				out.tracker.Update(state, counter, stats, indicator)
				out.refreshConnected()
			}
			if out.metrics != nil {
				out.metrics.Observe(stats, counter, state, indicator)
			}
			if out.hub != nil && out.tracker != nil &&
				(counter != lastCounter || state != lastState || indicator != lastIndicator) {
				payload := status.FormatStatusEvent(out.tracker.Snapshot(), "", "")
				box.submit("status broadcast", func() { out.hub.Broadcast("status", payload) })
			}
			lastCounter, lastState, lastIndicator = counter, state, indicator

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Info().
					Uint64("minutes", stats.MinutesPublished).
					Uint64("resyncs", stats.Resyncs).
					Uint64("overruns", stats.Overruns).
					Str("state", string(state)).
					Msg("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if out.tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(out.tracker.Snapshot(), "HEARTBEAT", "")
				}
				box.submit("heartbeat", func() {
					if err := out.publisher.PublishSystem(hbEvent); err != nil {
						log.Warn().Err(err).Msg("heartbeat publish error")
					}
				})
			}
		}
	}
}

func (o loopSinks) publishMinute(log zerolog.Logger, box *outbox, m dcf77.Minute, at time.Time) {
	f := m.Frame.Fields()
	log.Info().
		Str("utc", m.Time.Time().Format(time.RFC3339)).
		Str("local", fmt.Sprintf("%04d-%02d-%02d %02d:%02d", f.Year, f.Month, f.Day, f.Hour, f.Minute)).
		Str("zone", m.Frame.Flags.Zone()).
		Msg("minute decoded")

	if o.tracker != nil {
		o.tracker.SetMinute(m, at)
	}
	if o.metrics != nil {
		o.metrics.ObserveMinute(m)
	}

	box.submit("minute", func() {
		// Don't stop on publish failure
		if err := o.publisher.Publish(m); err != nil {
			log.Warn().Err(err).Msg("publish error")
		}
		if o.hub != nil {
			if payload, err := mqtt.FormatPayload(m); err == nil {
				o.hub.Broadcast("minute", payload)
			}
		}
	})
}

func (o loopSinks) refreshConnected() {
	if o.mqttStatus == nil {
		return
	}
	connected := o.mqttStatus.IsConnected()
	if o.tracker != nil {
		o.tracker.SetMQTTConnected(connected)
	}
	if o.metrics != nil {
		o.metrics.SetMQTTConnected(connected)
	}
}

func describeLevel(level, carrierOff dcf77.Level) string {
	name := "LOW"
	if level == dcf77.High {
		name = "HIGH"
	}
	if level == carrierOff {
		return name + " (carrier reduced)"
	}
	return name + " (carrier full)"
}

// discardPublisher is used when MQTT is disabled.
type discardPublisher struct{}

func (discardPublisher) Publish(dcf77.Minute) error { return nil }

func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }

func (discardPublisher) Close() error { return nil }
