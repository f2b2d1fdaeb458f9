// Package push owns the live notification channel: one authenticated
// subscription per user, recovered after failures with bounded linear backoff.
package push

import (
	"context"
	"errors"

	"notify_client/internal/model"
)

// ErrRejected marks a handshake the backend refused for the presented
// credential. Transports wrap it so the Manager can drop a cached token.
var ErrRejected = errors.New("push handshake rejected")

// Invalidator is implemented by credential providers that cache tokens.
type Invalidator interface {
	Invalidate()
}

// Transport opens connections to the push backend. The bearer token must be
// part of the handshake itself, not a later header.
type Transport interface {
	// Topic names the per-user subscription deterministically.
	Topic(userID int64) string
	Dial(ctx context.Context, token string) (Conn, error)
}

type Conn interface {
	Subscribe(ctx context.Context, topic string) error
	// Read blocks for the next message payload.
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Status is reported to the Listener on every connection transition.
type Status struct {
	State model.ConnectionState
	Error string
}

// Listener receives pushed notifications in arrival order, and connection
// transitions.
type Listener interface {
	OnPush(n model.Notification)
	OnConnectionChange(s Status)
}
