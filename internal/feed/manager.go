package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"hrms-realtime/pkg/log"
)

// Manager owns the single shared feed connection for the process and fans
// inbound notifications out to any number of subscribers. It is constructed
// once at the composition root and passed by reference to anything needing
// the feed; "exactly one connection" is enforced here, not by a package
// global.
type Manager struct {
	cfg     Config
	tokenFn TokenFunc
	logger  log.Logger

	mu   sync.Mutex
	conn *Conn
	tr   transport
	gen  int // dial generation; bumping it invalidates the running loop
	subs []*Subscription
}

// New creates a feed manager. tokenFn is consulted at connect time and again
// on ReconnectWithFreshToken; it may return "" (the connection is attempted
// unauthenticated and left to the gateway to reject).
func New(cfg Config, tokenFn TokenFunc, logger log.Logger) *Manager {
	if tokenFn == nil {
		tokenFn = func() string { return "" }
	}
	return &Manager{
		cfg:     cfg.withDefaults(),
		tokenFn: tokenFn,
		logger:  logger,
	}
}

// Connection returns the shared connection object, constructing it and
// starting the dial on first use. The dial outcome is observed through the
// Conn's status, not through this call.
func (m *Manager) Connection() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectionLocked()
}

func (m *Manager) connectionLocked() *Conn {
	if m.conn == nil {
		c := newConn(m.cfg.Endpoint, m.tokenFn())
		c.setStatus(StatusConnecting)
		m.conn = c
		m.gen++
		go m.run(c, m.gen)
	}
	return m.conn
}

// Subscribe registers h for every inbound notification payload and returns
// the subscription handle plus the shared connection for diagnostics. The
// connection is created lazily by the first subscriber.
func (m *Manager) Subscribe(h Handler) (*Subscription, *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.connectionLocked()
	s := &Subscription{m: m, handler: h}
	m.subs = append(m.subs, s)
	return s, c
}

// ReconnectWithFreshToken re-reads the token, swaps it into the live
// connection in place, and forces a disconnect + redial cycle. The shared
// Conn object is preserved; no second connection is ever created.
func (m *Manager) ReconnectWithFreshToken() {
	m.mu.Lock()
	c := m.conn
	if c == nil {
		m.mu.Unlock()
		return
	}
	c.setToken(m.tokenFn())
	m.gen++
	gen := m.gen
	tr := m.tr
	m.tr = nil
	m.mu.Unlock()

	if tr != nil {
		_ = tr.close()
	}
	c.setStatus(StatusConnecting)
	go m.run(c, gen)
}

// Teardown disconnects and clears the shared connection so the next
// Connection call performs a fresh construction. Used at logout. Calling it
// with no live connection is a no-op. Subscriptions survive teardown; they
// resume delivery once a new connection is established.
func (m *Manager) Teardown() {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	tr := m.tr
	m.tr = nil
	m.gen++
	m.mu.Unlock()

	if tr != nil {
		_ = tr.close()
	}
	if c != nil {
		c.setStatus(StatusDisconnected)
	}
}

// run is the connection loop for one dial generation: dial (with transport
// fallback), deliver until the stream fails, redial within the bounded
// attempt budget, and park the connection in StatusError when the budget is
// spent.
func (m *Manager) run(c *Conn, gen int) {
	ctx := context.Background()
	attempts := 0

	for {
		if m.stale(gen) {
			return
		}
		c.setStatus(StatusConnecting)

		tr, err := m.dial(c)
		if err != nil {
			attempts++
			m.logger.Warnf(ctx, "internal.feed.run.dial (attempt %d/%d): %v", attempts, m.cfg.MaxRetries, err)
			if attempts >= m.cfg.MaxRetries {
				c.failed(fmt.Errorf("%w: %v", ErrRetriesExhausted, err))
				m.logger.Errorf(ctx, "internal.feed.run: giving up after %d attempts: %v", attempts, err)
				return
			}
			time.Sleep(m.cfg.RetryDelay)
			continue
		}

		if !m.adoptTransport(gen, tr) {
			_ = tr.close()
			return
		}
		c.connected(tr.connectionID())
		m.logger.Infof(ctx, "internal.feed.run: connected via %s (connection %s)", tr.name(), tr.connectionID())
		attempts = 0

		err = m.readLoop(tr)
		if m.stale(gen) {
			return
		}
		c.disconnected(err)
		m.logger.Warnf(ctx, "internal.feed.run: connection lost: %v", err)
		attempts++
		time.Sleep(m.cfg.RetryDelay)
	}
}

// dial prefers the duplex transport and falls back to long-polling when the
// websocket cannot be established.
func (m *Manager) dial(c *Conn) (transport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
	defer cancel()

	token := c.Token()

	wsTr, wsErr := dialWebsocket(ctx, c.endpoint, token, m.cfg.HandshakeTimeout)
	if wsErr == nil {
		return wsTr, nil
	}
	m.logger.Warnf(ctx, "internal.feed.dial: websocket unavailable, trying polling: %v", wsErr)

	pollTr, pollErr := dialPoll(c.endpoint, token, m.cfg.PollWait)
	if pollErr == nil {
		return pollTr, nil
	}

	return nil, fmt.Errorf("websocket: %v; polling: %w", wsErr, pollErr)
}

func (m *Manager) adoptTransport(gen int, tr transport) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.tr = tr
	return true
}

func (m *Manager) stale(gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.gen
}

func (m *Manager) readLoop(tr transport) error {
	for {
		env, err := tr.read()
		if err != nil {
			return err
		}
		switch env.Type {
		case eventNotification:
			m.deliver(env.Payload)
		default:
			// connected re-acks, pings and unknown frames are ignored
		}
	}
}

// deliver fans one payload out to all live subscriptions, synchronously and
// in registration order. With no subscribers the payload is dropped; there
// is no buffering or replay.
func (m *Manager) deliver(payload json.RawMessage) {
	m.mu.Lock()
	subs := make([]*Subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		s.invoke(payload, m.logger)
	}
}

func (m *Manager) removeSubscription(target *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s == target {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// subscriberCount is used by tests and diagnostics.
func (m *Manager) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
