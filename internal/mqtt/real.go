package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/dcf77-sensor/internal/dcf77"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt: publish timeout")

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
	clientIDPrefix = "dcf77-sensor"
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string // generated from clientIDPrefix and a uuid when empty
	Username    string
	Password    string
	TopicPrefix string
	BufferSize  int
	// OnReconnect, if set, is called after a connection is re-established
	// and buffered messages are replayed.
	OnReconnect func()
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held in a ring buffer and replayed in order on
// reconnect.
type RealPublisher struct {
	client      paho.Client
	log         zerolog.Logger
	minuteTopic string
	systemTopic string
	onReconnect func()
	deliver     func(bufferedMsg) error

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool
	connects  int
	losses    int
}

// NewRealPublisher creates a publisher for the given broker. A connect
// timeout is not fatal: paho keeps retrying in the background and messages
// are buffered until the first connection succeeds.
func NewRealPublisher(opts Options, log zerolog.Logger) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: empty broker")
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = clientIDPrefix + "-" + uuid.NewString()[:8]
	}

	p := newPublisher(opts, log)
	p.deliver = p.send

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "LWT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetBinaryWill(p.systemTopic, will, 1, true).
		SetOnConnectHandler(p.handleConnect).
		SetConnectionLostHandler(p.handleConnectionLost).
		SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
			p.log.Debug().Msg("reconnecting")
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	p.client = paho.NewClient(co)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warn().Dur("timeout", connectTimeout).Msg("broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(opts Options, log zerolog.Logger) *RealPublisher {
	return &RealPublisher{
		log:         log.With().Str("component", "mqtt").Str("broker", opts.Broker).Logger(),
		minuteTopic: MinuteTopic(opts.TopicPrefix),
		systemTopic: SystemTopic(opts.TopicPrefix),
		onReconnect: opts.OnReconnect,
		buf:         newRingBuffer(opts.BufferSize),
	}
}

// handleConnect replays the offline buffer. Publishes that arrive during the
// replay are buffered behind it; connected is set once the buffer is empty.
func (p *RealPublisher) handleConnect(_ paho.Client) {
	p.mu.Lock()
	p.connects++
	reconnect := p.connects > 1
	losses := p.losses
	p.mu.Unlock()

	replayed := 0
	for {
		p.mu.Lock()
		if p.losses != losses {
			p.mu.Unlock()
			p.log.Warn().Int("replayed", replayed).Msg("connection lost during replay")
			return
		}
		pending := p.buf.drainAll()
		if len(pending) == 0 {
			p.connected = true
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		for _, msg := range pending {
			if err := p.deliver(msg); err != nil {
				p.log.Warn().Err(err).Str("topic", msg.topic).Msg("replay failed")
			}
			replayed++
		}
	}

	p.log.Info().Int("replayed", replayed).Bool("reconnect", reconnect).Msg("connected")
	if reconnect && p.onReconnect != nil {
		p.onReconnect()
	}
}

func (p *RealPublisher) handleConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.losses++
	p.mu.Unlock()
	p.log.Warn().Err(err).Msg("connection lost")
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Publish sends a decoded minute to the broker.
func (p *RealPublisher) Publish(m dcf77.Minute) error {
	payload, err := FormatPayload(m)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), retained so late subscribers see the last minute
	return p.publish(bufferedMsg{topic: p.minuteTopic, payload: payload, qos: 0, retained: true})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.connected {
		if p.buf.push(msg) {
			p.log.Warn().Msg("offline buffer full, dropping oldest messages")
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.deliver(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
