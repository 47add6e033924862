package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollURL(t *testing.T) {
	cases := []struct {
		endpoint string
		want     string
	}{
		{"ws://gateway.local:8081/ws", "http://gateway.local:8081/poll"},
		{"wss://gateway.example.com/ws", "https://gateway.example.com/poll"},
		{"ws://gateway.local/realtime/ws", "http://gateway.local/realtime/poll"},
	}
	for _, c := range cases {
		got, err := pollURL(c.endpoint)
		if err != nil {
			t.Fatalf("pollURL(%q): %v", c.endpoint, err)
		}
		if got != c.want {
			t.Errorf("pollURL(%q) = %q, want %q", c.endpoint, got, c.want)
		}
	}
}

// pollOnlyStub refuses websocket upgrades and serves the long-poll
// endpoint instead, the way a gateway behind a buffering proxy looks
// to the client.
type pollOnlyStub struct {
	srv      *httptest.Server
	wsHits   atomic.Int32
	pollHits atomic.Int32

	mu      sync.Mutex
	session string
	queue   []envelope
}

func newPollOnlyStub(t *testing.T) *pollOnlyStub {
	t.Helper()
	p := &pollOnlyStub{session: "sess-poll-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		p.wsHits.Add(1)
		http.Error(w, "websocket disabled", http.StatusBadRequest)
	})
	mux.HandleFunc("/poll", func(w http.ResponseWriter, r *http.Request) {
		p.pollHits.Add(1)

		resp := pollResponse{}
		if r.URL.Query().Get("session") == "" {
			resp.SessionID = p.session
		} else {
			deadline := time.Now().Add(300 * time.Millisecond)
			for time.Now().Before(deadline) {
				p.mu.Lock()
				if len(p.queue) > 0 {
					resp.Messages = p.queue
					p.queue = nil
					p.mu.Unlock()
					break
				}
				p.mu.Unlock()
				time.Sleep(10 * time.Millisecond)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *pollOnlyStub) endpoint() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http") + "/ws"
}

func (p *pollOnlyStub) push(payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, envelope{
		Type:      eventNotification,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now(),
	})
}

func TestFallbackToPollingWhenUpgradeFails(t *testing.T) {
	p := newPollOnlyStub(t)
	m := New(testConfig(p.endpoint()), func() string { return "tok" }, &testLogger{})
	defer m.Teardown()

	var got atomic.Int32
	_, conn := m.Subscribe(func(raw json.RawMessage) { got.Add(1) })

	waitFor(t, "poll session", func() bool { return conn.Status() == StatusConnected })

	if p.wsHits.Load() == 0 {
		t.Error("websocket transport should be attempted first")
	}
	if conn.ID() != "sess-poll-1" {
		t.Errorf("conn id: got %q, want the poll session id", conn.ID())
	}

	p.push(`{"id":"n1"}`)
	waitFor(t, "delivery over polling", func() bool { return got.Load() == 1 })
}
