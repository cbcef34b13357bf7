package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/events"
	"github.com/ObsyanX/kmrl-prototype1-sub001/internal/eventbus"
)

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type published struct {
	topic   string
	payload []byte
}

type mockClient struct {
	mu        sync.Mutex
	published []published
}

func (m *mockClient) IsConnected() bool      { return true }
func (m *mockClient) Connect() paho.Token    { return dummyToken{} }
func (m *mockClient) Disconnect(quiesce uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic: topic, payload: payload.([]byte)})
	return dummyToken{}
}

func (m *mockClient) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]published, len(m.published))
	copy(out, m.published)
	return out
}

func newTestPublisher(t *testing.T) (*PlanPublisher, *mockClient) {
	t.Helper()
	mc := &mockClient{}
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	pub, err := NewPlanPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "test"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	return pub, mc
}

func TestPublishRun(t *testing.T) {
	pub, mc := newTestPublisher(t)
	defer pub.Close()

	ev := events.RunCompletedEvent{OptimizationID: "opt-1", ServiceCount: 18}
	if err := pub.PublishRun(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msgs := mc.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].topic != "induction/runs" {
		t.Errorf("topic = %s", msgs[0].topic)
	}
	var got events.RunCompletedEvent
	if err := json.Unmarshal(msgs[0].payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.OptimizationID != "opt-1" || got.ServiceCount != 18 {
		t.Errorf("payload round trip: %+v", got)
	}
}

func TestBridgeForwardsEvents(t *testing.T) {
	pub, mc := newTestPublisher(t)

	bus := eventbus.New()
	done := make(chan struct{})
	go func() {
		pub.Bridge(bus)
		close(done)
	}()
	// Give the bridge time to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)

	bus.Publish(events.RunCompletedEvent{OptimizationID: "opt-2"})
	bus.Publish(events.SwapExecutedEvent{DecisionID: "dec-1", Tier: "accepted"})
	bus.Publish("unrelated payload")

	deadline := time.After(time.Second)
	for len(mc.messages()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 messages, got %d", len(mc.messages()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	byTopic := map[string]int{}
	for _, m := range mc.messages() {
		byTopic[m.topic]++
	}
	if byTopic["induction/runs"] != 1 || byTopic["induction/swaps"] != 1 {
		t.Errorf("messages by topic = %v", byTopic)
	}

	pub.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop after Close")
	}
	if n := len(mc.messages()); n != 2 {
		t.Errorf("unrelated bus traffic reached the broker, %d messages", n)
	}
}
