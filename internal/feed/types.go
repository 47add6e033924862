package feed

import (
	"encoding/json"
	"sync"
	"time"
)

// Status is the lifecycle state of the shared connection.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// DefaultEndpoint targets a local gateway; overridden via FEED_URL.
const DefaultEndpoint = "ws://localhost:8081/ws"

// Config holds the connection policy for the feed manager.
type Config struct {
	Endpoint         string        // ws:// or wss:// URL of the gateway feed
	MaxRetries       int           // dial attempts per outage before giving up
	RetryDelay       time.Duration // delay between attempts
	HandshakeTimeout time.Duration // dial + handshake-ack deadline
	PollWait         time.Duration // long-poll window of the fallback transport
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PollWait <= 0 {
		c.PollWait = 25 * time.Second
	}
	return c
}

// TokenFunc supplies the current auth token at connect and reconnect time.
type TokenFunc func() string

// Handler receives each inbound notification payload.
type Handler func(payload json.RawMessage)

// Conn is the process-wide shared connection object. All consumers observe
// the same instance; only the manager mutates its lifecycle fields. The dial
// is asynchronous, so a fresh Conn reports StatusConnecting until the
// handshake is acknowledged.
type Conn struct {
	endpoint string

	mu      sync.Mutex
	token   string
	status  Status
	id      string
	lastErr error
}

func newConn(endpoint, token string) *Conn {
	return &Conn{
		endpoint: endpoint,
		token:    token,
		status:   StatusDisconnected,
	}
}

// Endpoint returns the resolved feed URL.
func (c *Conn) Endpoint() string { return c.endpoint }

// Status returns the current lifecycle state.
func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ID returns the gateway-assigned connection id, empty while not connected.
func (c *Conn) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// LastError returns the most recent terminal error, if any.
func (c *Conn) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Token returns the auth token currently attached to the handshake.
func (c *Conn) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Conn) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Conn) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
	if s != StatusConnected {
		c.id = ""
	}
}

func (c *Conn) connected(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusConnected
	c.id = id
	c.lastErr = nil
}

func (c *Conn) disconnected(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusDisconnected
	c.id = ""
	c.lastErr = err
}

func (c *Conn) failed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusError
	c.id = ""
	c.lastErr = err
}
