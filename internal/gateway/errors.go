package gateway

import "errors"

var (
	ErrInvalidMessage        = errors.New("invalid message")
	ErrMissingToken          = errors.New("missing token")
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrMaxConnectionsReached = errors.New("maximum connections reached")
	ErrSessionNotFound       = errors.New("poll session not found")
)
