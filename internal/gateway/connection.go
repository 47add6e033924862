package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hrms-realtime/pkg/log"
)

// wsClient represents a websocket leg for an account
type wsClient struct {
	// Hub reference
	hub *Hub

	// WebSocket connection
	conn *websocket.Conn

	// Identity
	id        string
	accountID string

	// Buffered channel of outbound messages
	send chan []byte

	// Configuration
	pongWait   time.Duration
	pingPeriod time.Duration
	writeWait  time.Duration
	readLimit  int64

	// Logger
	logger log.Logger

	// Done signal
	closeOnce sync.Once
	done      chan struct{}
}

func newWSClient(
	hub *Hub,
	conn *websocket.Conn,
	id string,
	accountID string,
	cfg WSConfig,
	logger log.Logger,
) *wsClient {
	return &wsClient{
		hub:        hub,
		conn:       conn,
		id:         id,
		accountID:  accountID,
		send:       make(chan []byte, 256),
		pongWait:   cfg.PongWait,
		pingPeriod: cfg.PingPeriod,
		writeWait:  cfg.WriteWait,
		readLimit:  cfg.MaxMessageSize,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) AccountID() string { return c.accountID }

func (c *wsClient) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump pumps messages from the WebSocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})
	c.conn.SetReadLimit(c.readLimit)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Errorf(context.Background(), "WebSocket read error for account %s: %v", c.accountID, err)
			}
			break
		}

		c.logger.Debugf(context.Background(), "Received message from account %s: %s", c.accountID, string(message))

		// Clients do not drive server state over the socket; the read pump
		// exists to detect disconnects and handle pong frames.
	}
}

// writePump pumps messages from the hub to the WebSocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Start starts the connection's read and write pumps
func (c *wsClient) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *wsClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
