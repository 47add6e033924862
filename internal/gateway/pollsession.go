package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hrms-realtime/pkg/log"
)

// pollSession represents a long-poll leg for an account. Messages queue up
// server-side between poll requests.
type pollSession struct {
	id        string
	accountID string

	queue chan []byte

	mu       sync.Mutex
	lastSeen time.Time

	closeOnce sync.Once
	done      chan struct{}
}

func newPollSession(id, accountID string, queueSize int) *pollSession {
	return &pollSession{
		id:        id,
		accountID: accountID,
		queue:     make(chan []byte, queueSize),
		lastSeen:  time.Now(),
		done:      make(chan struct{}),
	}
}

func (s *pollSession) ID() string { return s.id }

func (s *pollSession) AccountID() string { return s.accountID }

func (s *pollSession) Enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

func (s *pollSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *pollSession) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *pollSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// drain blocks up to wait for the first queued message, then collects
// whatever else is already buffered.
func (s *pollSession) drain(ctx context.Context, wait time.Duration) []json.RawMessage {
	s.touch()

	msgs := []json.RawMessage{}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case data := <-s.queue:
		msgs = append(msgs, data)
	case <-timer.C:
		return msgs
	case <-s.done:
		return msgs
	case <-ctx.Done():
		return msgs
	}

	for {
		select {
		case data := <-s.queue:
			msgs = append(msgs, data)
		default:
			s.touch()
			return msgs
		}
	}
}

// pollRegistry tracks live poll sessions and expires idle ones.
type pollRegistry struct {
	hub    *Hub
	logger log.Logger

	mu       sync.RWMutex
	sessions map[string]*pollSession

	sessionTTL time.Duration
	queueSize  int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newPollRegistry(hub *Hub, logger log.Logger, sessionTTL time.Duration) *pollRegistry {
	ctx, cancel := context.WithCancel(context.Background())

	return &pollRegistry{
		hub:        hub,
		logger:     logger,
		sessions:   make(map[string]*pollSession),
		sessionTTL: sessionTTL,
		queueSize:  256,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run expires idle sessions until Shutdown.
func (r *pollRegistry) Run() {
	defer close(r.done)

	interval := r.sessionTTL / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.expireIdle()
		}
	}
}

func (r *pollRegistry) expireIdle() {
	cutoff := time.Now().Add(-r.sessionTTL)

	r.mu.Lock()
	var expired []*pollSession
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.logger.Infof(r.ctx, "Expiring idle poll session %s (account: %s)", s.id, s.accountID)
		r.hub.Unregister(s)
	}
}

func (r *pollRegistry) create(id, accountID string) *pollSession {
	s := newPollSession(id, accountID, r.queueSize)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.hub.Register(s)
	return s
}

func (r *pollRegistry) get(id string) (*pollSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *pollRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown stops the expiry loop and unregisters all sessions.
func (r *pollRegistry) Shutdown(ctx context.Context) error {
	r.cancel()

	r.mu.Lock()
	sessions := make([]*pollSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*pollSession)
	r.mu.Unlock()

	for _, s := range sessions {
		r.hub.Unregister(s)
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
