package feed

import "errors"

var (
	// ErrRetriesExhausted marks a connection that gave up after the bounded
	// attempt count. Recovery requires ReconnectWithFreshToken or a
	// Teardown followed by Connection.
	ErrRetriesExhausted = errors.New("feed: connection retries exhausted")

	// ErrTransportClosed is returned by a transport read after Close.
	ErrTransportClosed = errors.New("feed: transport closed")
)
