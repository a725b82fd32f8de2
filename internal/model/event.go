package model

import (
	"time"
)

// Event names broadcast through the notifier.
const (
	EventMessageCreated = "message.created"
	EventMessageEdited  = "message.edited"
	EventMessageDeleted = "message.deleted"
	EventSessionUpdated = "session.updated"
)

// ChatEvent is the envelope published for every broadcast.
type ChatEvent struct {
	Event     string    `json:"event"`
	TenantID  string    `json:"tenant_id"`
	SessionID string    `json:"session_id"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
