package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// pollResponse is the body of a poll round-trip. The first response of a
// session carries the gateway-assigned session id.
type pollResponse struct {
	SessionID string     `json:"session_id"`
	Messages  []envelope `json:"messages"`
}

// pollTransport is the request/response fallback for networks where the
// duplex transport cannot be established (proxies, restrictive firewalls).
// Each read drains buffered envelopes or issues a long-poll request.
type pollTransport struct {
	client  *http.Client
	baseURL string
	token   string
	session string
	pending []envelope

	ctx    context.Context
	cancel context.CancelFunc
}

// pollURL derives the poll endpoint from the websocket endpoint: scheme
// ws->http (wss->https), trailing /ws path segment replaced by /poll.
func pollURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = strings.TrimSuffix(u.Path, "/ws") + "/poll"
	u.RawQuery = ""
	return u.String(), nil
}

// dialPoll registers a poll session with the gateway. The auth token rides
// on the query string of every request, same as the websocket handshake.
func dialPoll(endpoint, token string, wait time.Duration) (*pollTransport, error) {
	base, err := pollURL(endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &pollTransport{
		client:  &http.Client{Timeout: wait + 10*time.Second},
		baseURL: base,
		token:   token,
		ctx:     ctx,
		cancel:  cancel,
	}

	resp, err := t.request("")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("poll handshake: %w", err)
	}
	if resp.SessionID == "" {
		cancel()
		return nil, fmt.Errorf("poll handshake: gateway returned no session id")
	}
	t.session = resp.SessionID
	t.pending = resp.Messages

	return t, nil
}

func (t *pollTransport) name() string { return "polling" }

func (t *pollTransport) connectionID() string { return t.session }

func (t *pollTransport) read() (envelope, error) {
	for {
		if len(t.pending) > 0 {
			env := t.pending[0]
			t.pending = t.pending[1:]
			return env, nil
		}

		select {
		case <-t.ctx.Done():
			return envelope{}, ErrTransportClosed
		default:
		}

		resp, err := t.request(t.session)
		if err != nil {
			if t.ctx.Err() != nil {
				return envelope{}, ErrTransportClosed
			}
			return envelope{}, err
		}
		t.pending = append(t.pending, resp.Messages...)
	}
}

func (t *pollTransport) request(session string) (*pollResponse, error) {
	u, _ := url.Parse(t.baseURL)
	q := u.Query()
	if t.token != "" {
		q.Set("token", t.token)
	}
	if session != "" {
		q.Set("session", session)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll request: status %d: %s", httpResp.StatusCode, body)
	}

	var resp pollResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("poll request: bad body: %w", err)
	}
	return &resp, nil
}

func (t *pollTransport) close() error {
	t.cancel()
	return nil
}
