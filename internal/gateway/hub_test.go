package gateway

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements log.Logger for testing
type testLogger struct{}

func (m *testLogger) Debug(ctx context.Context, args ...any)                    {}
func (m *testLogger) Debugf(ctx context.Context, template string, args ...any)  {}
func (m *testLogger) Info(ctx context.Context, args ...any)                     {}
func (m *testLogger) Infof(ctx context.Context, template string, args ...any)   {}
func (m *testLogger) Warn(ctx context.Context, args ...any)                     {}
func (m *testLogger) Warnf(ctx context.Context, template string, args ...any)   {}
func (m *testLogger) Error(ctx context.Context, args ...any)                    {}
func (m *testLogger) Errorf(ctx context.Context, template string, args ...any)  {}
func (m *testLogger) DPanic(ctx context.Context, args ...any)                   {}
func (m *testLogger) DPanicf(ctx context.Context, template string, args ...any) {}
func (m *testLogger) Panic(ctx context.Context, args ...any)                    {}
func (m *testLogger) Panicf(ctx context.Context, template string, args ...any)  {}
func (m *testLogger) Fatal(ctx context.Context, args ...any)                    {}
func (m *testLogger) Fatalf(ctx context.Context, template string, args ...any)  {}

// fakeClient is a hub client backed by a channel
type fakeClient struct {
	id        string
	accountID string
	recv      chan []byte
	closed    atomic.Bool
	full      bool
}

func newFakeClient(id, accountID string) *fakeClient {
	return &fakeClient{
		id:        id,
		accountID: accountID,
		recv:      make(chan []byte, 16),
	}
}

func (f *fakeClient) ID() string        { return f.id }
func (f *fakeClient) AccountID() string { return f.accountID }
func (f *fakeClient) Close()            { f.closed.Store(true) }

func (f *fakeClient) Enqueue(data []byte) bool {
	if f.full {
		return false
	}
	select {
	case f.recv <- data:
		return true
	default:
		return false
	}
}

func (f *fakeClient) next(t *testing.T) *Message {
	t.Helper()
	select {
	case data := <-f.recv:
		msg, err := FromJSON(data)
		if err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func newTestHub(t *testing.T, maxClients int) *Hub {
	t.Helper()
	hub := NewHub(&testLogger{}, maxClients)
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hub.Shutdown(ctx)
	})
	return hub
}

func TestHubRegisterSendsConnectedAck(t *testing.T) {
	hub := newTestHub(t, 100)

	c := newFakeClient("conn-1", "acc-1")
	hub.Register(c)

	msg := c.next(t)
	if msg.Type != MessageTypeConnected {
		t.Fatalf("first frame type: got %s, want %s", msg.Type, MessageTypeConnected)
	}

	var payload map[string]string
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad ack payload: %v", err)
	}
	if payload["connection_id"] != "conn-1" {
		t.Errorf("connection_id: got %q", payload["connection_id"])
	}
}

func TestHubRoutesToAllAccountClients(t *testing.T) {
	hub := newTestHub(t, 100)

	tab1 := newFakeClient("c1", "acc-1")
	tab2 := newFakeClient("c2", "acc-1")
	other := newFakeClient("c3", "acc-2")
	for _, c := range []*fakeClient{tab1, tab2, other} {
		hub.Register(c)
		c.next(t) // drain ack
	}

	hub.SendNotification("acc-1", json.RawMessage(`{"id":"n1"}`))

	for _, c := range []*fakeClient{tab1, tab2} {
		msg := c.next(t)
		if msg.Type != MessageTypeNotification {
			t.Errorf("type: got %s", msg.Type)
		}
	}

	select {
	case data := <-other.recv:
		t.Errorf("unrelated account received %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubSkipsOfflineAccounts(t *testing.T) {
	hub := newTestHub(t, 100)

	// No client for this account; delivery is silently skipped.
	hub.SendNotification("acc-offline", json.RawMessage(`{"id":"n1"}`))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetStats().TotalMessagesReceived == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if sent := hub.GetStats().TotalMessagesSent; sent != 0 {
		t.Errorf("sent count for offline account: %d", sent)
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := newTestHub(t, 100)

	c := newFakeClient("c1", "acc-1")
	hub.Register(c)
	c.next(t)

	hub.Unregister(c)

	deadline := time.Now().Add(2 * time.Second)
	for !c.closed.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !c.closed.Load() {
		t.Fatal("unregistered client was not closed")
	}

	hub.SendNotification("acc-1", json.RawMessage(`{"id":"n1"}`))

	select {
	case data := <-c.recv:
		t.Errorf("unregistered client received %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubRejectsBeyondMaxClients(t *testing.T) {
	hub := newTestHub(t, 1)

	first := newFakeClient("c1", "acc-1")
	hub.Register(first)
	first.next(t)

	second := newFakeClient("c2", "acc-2")
	hub.Register(second)

	deadline := time.Now().Add(2 * time.Second)
	for !second.closed.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !second.closed.Load() {
		t.Fatal("client beyond the limit should be closed")
	}

	stats := hub.GetStats()
	if stats.ActiveClients != 1 {
		t.Errorf("active clients: got %d, want 1", stats.ActiveClients)
	}
}

func TestHubCountsFailedDeliveries(t *testing.T) {
	hub := newTestHub(t, 100)

	c := newFakeClient("c1", "acc-1")
	c.full = true
	hub.Register(c)

	hub.SendNotification("acc-1", json.RawMessage(`{"id":"n1"}`))

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetStats().TotalMessagesFailed < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if failed := hub.GetStats().TotalMessagesFailed; failed < 1 {
		t.Errorf("failed count: got %d", failed)
	}
}
