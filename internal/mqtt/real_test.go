package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// offlinePublisher returns a publisher without a broker client whose
// deliveries are recorded in order.
func offlinePublisher(t *testing.T, onDeliver func(n int)) (*RealPublisher, *[]string) {
	t.Helper()
	p := newPublisher(Options{TopicPrefix: DefaultTopicPrefix, BufferSize: 10}, zerolog.Nop())
	var topics []string
	p.deliver = func(msg bufferedMsg) error {
		topics = append(topics, msg.topic)
		if onDeliver != nil {
			onDeliver(len(topics))
		}
		return nil
	}
	return p, &topics
}

func systemEvent(name string) SystemEvent {
	return SystemEvent{Timestamp: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), Event: name}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	p, topics := offlinePublisher(t, nil)
	if err := p.Publish(testMinute()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*topics) != 0 {
		t.Errorf("nothing should be delivered while disconnected, got %v", *topics)
	}
	if p.Buffered() != 1 {
		t.Errorf("Buffered: got %d, want 1", p.Buffered())
	}
	if p.IsConnected() {
		t.Error("should not report connected before the first connect")
	}
}

func TestRealPublisherReplayKeepsOrder(t *testing.T) {
	var p *RealPublisher
	p, topics := offlinePublisher(t, func(n int) {
		// A minute published while the replay is in flight.
		if n == 1 {
			if err := p.Publish(testMinute()); err != nil {
				t.Errorf("Publish during replay: %v", err)
			}
		}
	})

	for _, name := range []string{"STARTUP", "HEARTBEAT"} {
		if err := p.PublishSystem(systemEvent(name)); err != nil {
			t.Fatalf("PublishSystem: %v", err)
		}
	}
	p.handleConnect(nil)

	want := []string{SystemTopic(DefaultTopicPrefix), SystemTopic(DefaultTopicPrefix), MinuteTopic(DefaultTopicPrefix)}
	if len(*topics) != len(want) {
		t.Fatalf("delivered %v, want %v", *topics, want)
	}
	for i := range want {
		if (*topics)[i] != want[i] {
			t.Errorf("delivery %d: got %s, want %s", i, (*topics)[i], want[i])
		}
	}
	if !p.IsConnected() {
		t.Error("should report connected once the buffer is empty")
	}
	if p.Buffered() != 0 {
		t.Errorf("Buffered: got %d, want 0", p.Buffered())
	}

	// Connected publishes go straight out.
	if err := p.Publish(testMinute()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*topics) != 4 {
		t.Errorf("expected a direct delivery, got %v", *topics)
	}
}

func TestRealPublisherConnectionLostDuringReplay(t *testing.T) {
	var p *RealPublisher
	p, topics := offlinePublisher(t, func(n int) {
		if n == 1 {
			p.handleConnectionLost(nil, errors.New("broker went away"))
			if err := p.Publish(testMinute()); err != nil {
				t.Errorf("Publish: %v", err)
			}
		}
	})
	reconnects := 0
	p.onReconnect = func() { reconnects++ }

	if err := p.PublishSystem(systemEvent("STARTUP")); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	p.handleConnect(nil)

	if len(*topics) != 1 {
		t.Errorf("delivered %v, want only the first replayed message", *topics)
	}
	if p.IsConnected() {
		t.Error("should not report connected after losing the connection")
	}
	if p.Buffered() != 1 {
		t.Errorf("the minute should wait for the next connect, Buffered: %d", p.Buffered())
	}

	// The next connect replays it and counts as a reconnect.
	p.handleConnect(nil)
	if len(*topics) != 2 || (*topics)[1] != MinuteTopic(DefaultTopicPrefix) {
		t.Errorf("delivered %v", *topics)
	}
	if reconnects != 1 {
		t.Errorf("reconnects: got %d, want 1", reconnects)
	}
	if !p.IsConnected() {
		t.Error("should report connected")
	}
}
