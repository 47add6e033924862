package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"hrms-realtime/pkg/log"
)

// client is one delivery leg for an account: a websocket connection or a
// long-poll session. The hub treats both uniformly.
type client interface {
	ID() string
	AccountID() string
	// Enqueue buffers data for delivery, returning false when the client's
	// buffer is full.
	Enqueue(data []byte) bool
	Close()
}

// Hub maintains the set of active clients and routes messages to them
type Hub struct {
	// Registered clients (accountID -> []client for multiple tabs/devices)
	clients map[string][]client
	mu      sync.RWMutex

	// Channels for client management
	register   chan client
	unregister chan client

	// Channel for routing messages
	broadcast chan *BroadcastMessage

	// Metrics
	totalClients          atomic.Int64
	totalMessagesSent     atomic.Int64
	totalMessagesReceived atomic.Int64
	totalMessagesFailed   atomic.Int64

	// Configuration
	maxClients int

	// Dependencies
	logger log.Logger

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a new Hub instance
func NewHub(logger log.Logger, maxClients int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[string][]client),
		register:   make(chan client, 100),
		unregister: make(chan client, 100),
		broadcast:  make(chan *BroadcastMessage, 1000),
		maxClients: maxClients,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info(context.Background(), "Hub shutting down...")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.routeToAccount(msg)
		}
	}
}

// Register queues a client for registration. The hub acknowledges the
// client with a connected message carrying its id.
func (h *Hub) Register(c client) {
	h.register <- c
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(c client) {
	h.unregister <- c
}

func (h *Hub) registerClient(c client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.getTotalClientsLocked() >= h.maxClients {
		h.logger.Warnf(context.Background(), "Max clients reached, rejecting account: %s", c.AccountID())
		go c.Close()
		return
	}

	h.clients[c.AccountID()] = append(h.clients[c.AccountID()], c)
	h.totalClients.Add(1)

	// Acknowledge the client with its assigned id. Clients treat this as
	// the handshake completion signal.
	ack, err := NewMessage(MessageTypeConnected, map[string]string{"connection_id": c.ID()})
	if err == nil {
		if data, err := ack.ToJSON(); err == nil {
			c.Enqueue(data)
		}
	}

	h.logger.Infof(context.Background(),
		"Account connected: %s (total clients: %d, account clients: %d)",
		c.AccountID(),
		h.getTotalClientsLocked(),
		len(h.clients[c.AccountID()]),
	)
}

func (h *Hub) unregisterClient(c client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, exists := h.clients[c.AccountID()]
	if !exists {
		return
	}

	for i, registered := range clients {
		if registered == c {
			h.clients[c.AccountID()] = append(clients[:i], clients[i+1:]...)
			h.totalClients.Add(-1)

			c.Close()

			if len(h.clients[c.AccountID()]) == 0 {
				delete(h.clients, c.AccountID())
				h.logger.Infof(context.Background(), "Account disconnected (all clients closed): %s", c.AccountID())
			} else {
				h.logger.Infof(context.Background(),
					"Account client closed: %s (remaining clients: %d)",
					c.AccountID(),
					len(h.clients[c.AccountID()]),
				)
			}

			break
		}
	}
}

// routeToAccount sends a message to all clients of a specific account
func (h *Hub) routeToAccount(msg *BroadcastMessage) {
	h.mu.RLock()
	clients, exists := h.clients[msg.AccountID]
	h.mu.RUnlock()

	if !exists || len(clients) == 0 {
		// Account is not connected, skip silently
		return
	}

	data, err := msg.Message.ToJSON()
	if err != nil {
		h.logger.Errorf(context.Background(), "Failed to marshal message: %v", err)
		h.totalMessagesFailed.Add(1)
		return
	}

	sentCount := 0
	for _, c := range clients {
		if c.Enqueue(data) {
			sentCount++
		} else {
			h.logger.Warnf(context.Background(), "Failed to send message to account %s (buffer full)", msg.AccountID)
			h.totalMessagesFailed.Add(1)
		}
	}

	h.totalMessagesSent.Add(int64(sentCount))
	h.totalMessagesReceived.Add(1)
}

// SendToAccount sends a message to a specific account
func (h *Hub) SendToAccount(accountID string, message *Message) {
	select {
	case h.broadcast <- &BroadcastMessage{
		AccountID: accountID,
		Message:   message,
	}:
	case <-time.After(time.Second):
		h.logger.Warnf(context.Background(), "Timeout sending message to account %s", accountID)
		h.totalMessagesFailed.Add(1)
	}
}

// SendNotification marshals a notification payload and routes it to the
// account's clients.
func (h *Hub) SendNotification(accountID string, payload json.RawMessage) {
	h.SendToAccount(accountID, &Message{
		Type:      MessageTypeNotification,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// closeAllClients closes all active clients
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for accountID, clients := range h.clients {
		for _, c := range clients {
			c.Close()
		}
		h.logger.Infof(context.Background(), "Closed all clients for account: %s", accountID)
	}

	h.clients = make(map[string][]client)
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		ActiveClients:         h.getTotalClientsLocked(),
		TotalUniqueAccounts:   len(h.clients),
		TotalMessagesSent:     h.totalMessagesSent.Load(),
		TotalMessagesReceived: h.totalMessagesReceived.Load(),
		TotalMessagesFailed:   h.totalMessagesFailed.Load(),
	}
}

// getTotalClientsLocked returns total clients (must be called with lock held)
func (h *Hub) getTotalClientsLocked() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HubStats represents hub statistics
type HubStats struct {
	ActiveClients         int   `json:"active_clients"`
	TotalUniqueAccounts   int   `json:"total_unique_accounts"`
	TotalMessagesSent     int64 `json:"total_messages_sent"`
	TotalMessagesReceived int64 `json:"total_messages_received"`
	TotalMessagesFailed   int64 `json:"total_messages_failed"`
}
