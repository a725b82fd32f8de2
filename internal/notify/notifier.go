// Package notify broadcasts chat events to live listeners. Delivery is
// best-effort: the durable record already exists in the message store, so a
// failed publish is logged and never retried.
package notify

import (
	"context"
)

// Notifier publishes session-scoped events to whichever transport the
// surrounding system uses (WebSocket, SSE).
type Notifier interface {
	Publish(ctx context.Context, tenantID, sessionID, event string, payload any) error
}

// Noop discards all events. Used in tests and when no broker is configured.
type Noop struct{}

// Publish implements Notifier.
func (Noop) Publish(ctx context.Context, tenantID, sessionID, event string, payload any) error {
	return nil
}
