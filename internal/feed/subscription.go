package feed

import (
	"context"
	"encoding/json"
	"sync"

	"hrms-realtime/pkg/log"
)

// Subscription is a stable handle onto the feed for one consumer. The
// handler lives in a mutable slot: a consumer re-rendering its state swaps
// the handler with SetHandler instead of unregistering and re-registering,
// which keeps registration order stable and avoids listener churn.
type Subscription struct {
	m *Manager

	mu        sync.Mutex
	handler   Handler
	cancelled bool
}

// SetHandler replaces the function invoked for each inbound payload. A nil
// handler mutes the subscription without removing it.
func (s *Subscription) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Cancel removes this subscription; other subscribers are unaffected.
// It must be called on consumer teardown, and is idempotent.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()

	s.m.removeSubscription(s)
}

// invoke runs the current handler for one payload. The call is isolated: a
// panicking consumer is logged and never blocks delivery to the remaining
// subscribers.
func (s *Subscription) invoke(payload json.RawMessage, l log.Logger) {
	s.mu.Lock()
	h := s.handler
	cancelled := s.cancelled
	s.mu.Unlock()

	if cancelled || h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.Errorf(context.Background(), "internal.feed.Subscription.invoke: subscriber panic: %v", r)
		}
	}()
	h(payload)
}
