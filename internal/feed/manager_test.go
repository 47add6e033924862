package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// gatewayStub is a minimal feed endpoint: it acks every upgrade with a
// connected envelope and lets tests push notification frames.
type gatewayStub struct {
	srv      *httptest.Server
	upgrades atomic.Int32

	mu        sync.Mutex
	conns     []*websocket.Conn
	lastToken string
}

func newGatewayStub(t *testing.T) *gatewayStub {
	t.Helper()
	g := &gatewayStub{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.lastToken = r.URL.Query().Get("token")
		g.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := g.upgrades.Add(1)

		ack, _ := json.Marshal(envelope{
			Type:      eventConnected,
			Payload:   json.RawMessage(fmt.Sprintf(`{"connection_id":"conn-%d"}`, n)),
			Timestamp: time.Now(),
		})
		if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			conn.Close()
			return
		}

		g.mu.Lock()
		g.conns = append(g.conns, conn)
		g.mu.Unlock()

		// Drain reads to notice disconnects.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *gatewayStub) endpoint() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/ws"
}

func (g *gatewayStub) push(t *testing.T, payload string) {
	t.Helper()
	data, _ := json.Marshal(envelope{
		Type:      eventNotification,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now(),
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.conns) == 0 {
		t.Fatal("push: no connections")
	}
	conn := g.conns[len(g.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:         endpoint,
		MaxRetries:       3,
		RetryDelay:       20 * time.Millisecond,
		HandshakeTimeout: 2 * time.Second,
		PollWait:         200 * time.Millisecond,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubscribeCreatesSingleConnection(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), func() string { return "tok" }, &testLogger{})
	defer m.Teardown()

	const n = 8
	conns := make([]*Conn, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, conns[i] = m.Subscribe(func(json.RawMessage) {})
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if conns[i] != conns[0] {
			t.Fatal("subscribers must share one connection object")
		}
	}

	waitFor(t, "connection", func() bool { return conns[0].Status() == StatusConnected })

	if got := g.upgrades.Load(); got != 1 {
		t.Errorf("expected exactly 1 upgrade, got %d", got)
	}
	if conns[0].ID() == "" {
		t.Error("connected conn should carry the gateway-assigned id")
	}
}

func TestFanOutInRegistrationOrder(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), nil, &testLogger{})
	defer m.Teardown()

	var mu sync.Mutex
	var order []int
	record := func(i int) Handler {
		return func(json.RawMessage) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}
	}

	_, conn := m.Subscribe(record(1))
	m.Subscribe(record(2))
	m.Subscribe(record(3))

	waitFor(t, "connection", func() bool { return conn.Status() == StatusConnected })
	g.push(t, `{"id":"n1"}`)

	waitFor(t, "delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i+1 {
			t.Fatalf("delivery order %v, want [1 2 3]", order)
		}
	}
}

func TestUnsubscribeIsolation(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), nil, &testLogger{})
	defer m.Teardown()

	var aCalls, bCalls atomic.Int32
	subA, conn := m.Subscribe(func(json.RawMessage) { aCalls.Add(1) })
	m.Subscribe(func(json.RawMessage) { bCalls.Add(1) })

	waitFor(t, "connection", func() bool { return conn.Status() == StatusConnected })

	subA.Cancel()
	subA.Cancel() // idempotent

	g.push(t, `{"id":"n1"}`)
	waitFor(t, "delivery to b", func() bool { return bCalls.Load() == 1 })

	if got := aCalls.Load(); got != 0 {
		t.Errorf("cancelled subscriber invoked %d times", got)
	}
	if got := m.subscriberCount(); got != 1 {
		t.Errorf("subscriber count: got %d, want 1", got)
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), nil, &testLogger{})
	defer m.Teardown()

	var delivered atomic.Int32
	_, conn := m.Subscribe(func(json.RawMessage) { panic("broken consumer") })
	m.Subscribe(func(json.RawMessage) { delivered.Add(1) })

	waitFor(t, "connection", func() bool { return conn.Status() == StatusConnected })

	g.push(t, `{"id":"n1"}`)
	g.push(t, `{"id":"n2"}`)

	waitFor(t, "delivery past the panicking subscriber", func() bool { return delivered.Load() == 2 })
}

func TestSetHandlerSwapsWithoutReregistration(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), nil, &testLogger{})
	defer m.Teardown()

	var oldCalls, newCalls atomic.Int32
	sub, conn := m.Subscribe(func(json.RawMessage) { oldCalls.Add(1) })

	waitFor(t, "connection", func() bool { return conn.Status() == StatusConnected })

	sub.SetHandler(func(json.RawMessage) { newCalls.Add(1) })

	g.push(t, `{"id":"n1"}`)
	waitFor(t, "delivery to swapped handler", func() bool { return newCalls.Load() == 1 })

	if oldCalls.Load() != 0 {
		t.Error("old handler should not run after swap")
	}
	if got := m.subscriberCount(); got != 1 {
		t.Errorf("handler swap must not change registrations, got %d", got)
	}
}

func TestReconnectWithFreshTokenPreservesSingleton(t *testing.T) {
	g := newGatewayStub(t)

	token := "tok-old"
	var tokenMu sync.Mutex
	tokenFn := func() string {
		tokenMu.Lock()
		defer tokenMu.Unlock()
		return token
	}

	m := New(testConfig(g.endpoint()), tokenFn, &testLogger{})
	defer m.Teardown()

	_, c1 := m.Subscribe(func(json.RawMessage) {})
	waitFor(t, "first connection", func() bool { return c1.Status() == StatusConnected })

	tokenMu.Lock()
	token = "tok-new"
	tokenMu.Unlock()

	m.ReconnectWithFreshToken()
	waitFor(t, "reconnection", func() bool {
		return c1.Status() == StatusConnected && g.upgrades.Load() == 2
	})

	if c2 := m.Connection(); c2 != c1 {
		t.Error("reconnect must preserve the shared connection object")
	}
	if c1.Token() != "tok-new" {
		t.Errorf("token not refreshed in place: %q", c1.Token())
	}
	g.mu.Lock()
	last := g.lastToken
	g.mu.Unlock()
	if last != "tok-new" {
		t.Errorf("second handshake used token %q", last)
	}
}

func TestTeardownAllowsFreshConstruction(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), nil, &testLogger{})

	c1 := m.Connection()
	waitFor(t, "connection", func() bool { return c1.Status() == StatusConnected })

	m.Teardown()
	m.Teardown() // idempotent

	if c1.Status() != StatusDisconnected {
		t.Errorf("status after teardown: %s", c1.Status())
	}

	c2 := m.Connection()
	if c2 == c1 {
		t.Fatal("post-teardown connection must be a fresh construction")
	}
	waitFor(t, "fresh connection", func() bool { return c2.Status() == StatusConnected })
	m.Teardown()
}

func TestEmptyTokenStillAttemptsHandshake(t *testing.T) {
	g := newGatewayStub(t)
	m := New(testConfig(g.endpoint()), func() string { return "" }, &testLogger{})
	defer m.Teardown()

	c := m.Connection()
	waitFor(t, "unauthenticated connection", func() bool { return c.Status() == StatusConnected })

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastToken != "" {
		t.Errorf("expected no token on handshake, got %q", g.lastToken)
	}
}

func TestRetriesExhaustedEndsInError(t *testing.T) {
	// Nothing listens on this endpoint.
	cfg := testConfig("ws://127.0.0.1:1/ws")
	cfg.MaxRetries = 2
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.HandshakeTimeout = 200 * time.Millisecond

	m := New(cfg, nil, &testLogger{})
	defer m.Teardown()

	c := m.Connection()
	waitFor(t, "terminal error", func() bool { return c.Status() == StatusError })

	if !errors.Is(c.LastError(), ErrRetriesExhausted) {
		t.Errorf("LastError: got %v", c.LastError())
	}

	// ERROR is terminal: Connection() must not redial on its own.
	if c2 := m.Connection(); c2 != c {
		t.Error("Connection must return the errored singleton, not redial")
	}
}
