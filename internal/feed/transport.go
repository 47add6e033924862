package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// envelope is the wire frame delivered by the gateway.
type envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Inbound event names. The feed only ever reacts to these two; anything else
// passes through unprocessed.
const (
	eventConnected    = "connected"
	eventNotification = "notification"
)

// connectedPayload is the handshake ack body carrying the gateway-assigned
// connection id.
type connectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// transport is one established inbound stream. read blocks until the next
// envelope arrives or the stream fails terminally.
type transport interface {
	name() string
	connectionID() string
	read() (envelope, error)
	close() error
}

// wsTransport is the preferred duplex transport.
type wsTransport struct {
	conn    *websocket.Conn
	id      string
	pending []envelope
}

// dialWebsocket opens the websocket, attaching the token to the handshake
// query so the gateway can reject before any event flows, then waits for the
// connected ack.
func dialWebsocket(ctx context.Context, endpoint, token string, handshakeTimeout time.Duration) (*wsTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	// The first frame must be the connected ack.
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != eventConnected {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake frame: %s", data)
	}
	var ack connectedPayload
	_ = json.Unmarshal(env.Payload, &ack)

	_ = conn.SetReadDeadline(time.Time{})

	return &wsTransport{conn: conn, id: ack.ConnectionID}, nil
}

func (t *wsTransport) name() string { return "websocket" }

func (t *wsTransport) connectionID() string { return t.id }

// read returns the next envelope. The gateway coalesces queued frames into
// one websocket message separated by newlines, so a single read may yield
// several envelopes; extras are buffered.
func (t *wsTransport) read() (envelope, error) {
	for {
		if len(t.pending) > 0 {
			env := t.pending[0]
			t.pending = t.pending[1:]
			return env, nil
		}

		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return envelope{}, err
		}

		for _, frame := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			var env envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				continue
			}
			t.pending = append(t.pending, env)
		}
	}
}

func (t *wsTransport) close() error {
	return t.conn.Close()
}
