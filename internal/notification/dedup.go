package notification

import "sync"

// DeliveredSet tracks notification identities already presented within one
// presentation context (one open view). Each context owns its own set;
// suppression is deliberately not global, so two open views may each present
// a notification once. The set grows for the lifetime of the context and is
// dropped with it.
type DeliveredSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeliveredSet returns an empty DeliveredSet.
func NewDeliveredSet() *DeliveredSet {
	return &DeliveredSet{seen: make(map[string]struct{})}
}

// ShouldPresent reports whether id has not been presented in this context
// yet. It is advisory: the caller marks the identity via Mark once it
// presents.
func (s *DeliveredSet) ShouldPresent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seen := s.seen[id]
	return !seen
}

// Mark records id as presented.
func (s *DeliveredSet) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = struct{}{}
}

// Len returns the number of identities recorded.
func (s *DeliveredSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
