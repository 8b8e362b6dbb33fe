package broker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Attendance/internal/config"
	"github.com/dkeye/Attendance/internal/domain"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type statusLog struct {
	mu   sync.Mutex
	seen []domain.ConnStatus
}

func (s *statusLog) SetStatus(st domain.ConnStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, st)
}

func (s *statusLog) all() []domain.ConnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConnStatus(nil), s.seen...)
}

func (s *statusLog) last() domain.ConnStatus {
	seen := s.all()
	if len(seen) == 0 {
		return ""
	}
	return seen[len(seen)-1]
}

// fakeMQTT stands in for a paho client; unimplemented methods panic.
type fakeMQTT struct {
	mqtt.Client
	open bool

	mu        sync.Mutex
	published []publishCall
}

type publishCall struct {
	topic   string
	qos     byte
	payload string
}

func (f *fakeMQTT) IsConnectionOpen() bool { return f.open }

func (f *fakeMQTT) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishCall{topic: topic, qos: qos, payload: string(payload.([]byte))})
	return nil
}

func (f *fakeMQTT) calls() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishCall(nil), f.published...)
}

func testClient(t *testing.T) (*Client, *statusLog) {
	t.Helper()
	st := &statusLog{}
	c := New(config.BrokerConfig{
		URL:            "tcp://127.0.0.1:1",
		Topic:          "rfid/card",
		CardField:      "cardUID",
		ClientIDPrefix: "test-",
		EventBuffer:    2,
	}, st)
	c.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return c, st
}

func TestHandleMessageForwardsDecodedEvents(t *testing.T) {
	c, _ := testClient(t)
	c.handleMessage("rfid/card", []byte(`{"cardUID":"bbba3040"}`))
	c.handleMessage("rfid/card", []byte(`not-json`))

	select {
	case ev := <-c.Events():
		if ev.CardID != "BBBA3040" || ev.Topic != "rfid/card" || ev.ReceivedAt.IsZero() {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("expected an event")
	}
	select {
	case ev := <-c.Events():
		t.Fatalf("malformed payload produced %+v", ev)
	default:
	}
}

func TestHandleMessageUnblocksOnClose(t *testing.T) {
	c, st := testClient(t)
	c.handleMessage("rfid/card", []byte(`{"cardUID":"A1"}`))
	c.handleMessage("rfid/card", []byte(`{"cardUID":"A2"}`))

	returned := make(chan struct{})
	go func() {
		c.handleMessage("rfid/card", []byte(`{"cardUID":"A3"}`))
		close(returned)
	}()
	c.Close()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery stayed blocked after Close")
	}
	c.Close()
	if last := st.last(); last != domain.StatusDisconnected {
		t.Fatalf("status after close = %s", last)
	}
}

func TestAcknowledgePublishesOnlyWhenConfiguredAndConnected(t *testing.T) {
	c, _ := testClient(t)
	fake := &fakeMQTT{}
	c.mqtt = fake
	ack := domain.Ack{Success: true, Message: "Welcome, Alice", Timestamp: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}

	c.Acknowledge(ack)
	if n := len(fake.calls()); n != 0 {
		t.Fatalf("published %d acks without an ack topic", n)
	}

	c.cfg.AckTopic = "rfid/ack"
	c.Acknowledge(ack)
	if n := len(fake.calls()); n != 0 {
		t.Fatalf("published %d acks while disconnected", n)
	}

	fake.open = true
	c.Acknowledge(ack)
	calls := fake.calls()
	if len(calls) != 1 {
		t.Fatalf("published %d acks, want 1", len(calls))
	}
	got := calls[0]
	if got.topic != "rfid/ack" || got.qos != 0 {
		t.Fatalf("publish = %+v", got)
	}
	if !strings.Contains(got.payload, `"success":true`) || !strings.Contains(got.payload, `"message":"Welcome, Alice"`) {
		t.Fatalf("payload = %s", got.payload)
	}
}

func TestConnectUnreachableReportsError(t *testing.T) {
	st := &statusLog{}
	c := New(config.BrokerConfig{
		URL:             "tcp://127.0.0.1:1",
		Topic:           "rfid/card",
		CardField:       "cardUID",
		ClientIDPrefix:  "test-",
		ConnectTimeout:  300 * time.Millisecond,
		ReconnectPeriod: 200 * time.Millisecond,
	}, st)
	t.Cleanup(c.Close)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	seen := st.all()
	if len(seen) == 0 || seen[0] != domain.StatusConnecting {
		t.Fatalf("statuses = %v, want Connecting first", seen)
	}
	if last := st.last(); last != domain.StatusError {
		t.Fatalf("status = %s, want %s", last, domain.StatusError)
	}
}

func TestFailIfNotConnected(t *testing.T) {
	c, st := testClient(t)
	fake := &fakeMQTT{open: true}
	c.mqtt = fake

	c.failIfNotConnected()
	if n := len(st.all()); n != 0 {
		t.Fatalf("open connection reported %v", st.all())
	}

	fake.open = false
	c.failIfNotConnected()
	if last := st.last(); last != domain.StatusError {
		t.Fatalf("status = %s, want %s", last, domain.StatusError)
	}

	close(c.done)
	c.failIfNotConnected()
	if n := len(st.all()); n != 1 {
		t.Fatalf("closed client still reported: %v", st.all())
	}
}

func TestClientIDPrefix(t *testing.T) {
	a, b := ClientID("web-"), ClientID("web-")
	if len(a) != len("web-")+8 || a[:4] != "web-" || a == b {
		t.Fatalf("client ids %q %q", a, b)
	}
}
