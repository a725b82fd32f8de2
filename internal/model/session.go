// Package model defines data structures for the support chat core.
package model

import (
	"time"
)

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	SessionPending     SessionStatus = "pending"
	SessionActive      SessionStatus = "active"
	SessionCompleted   SessionStatus = "completed"
	SessionTransferred SessionStatus = "transferred"
)

// ChatSession pairs one customer with at most one agent at a time. It is the
// authorization boundary for every message inside it.
type ChatSession struct {
	ID         string  `gorm:"primaryKey" json:"id"`
	TenantID   string  `gorm:"index" json:"tenant_id"`
	CustomerID string  `gorm:"index;not null" json:"customer_id"`
	AgentID    *string `gorm:"index" json:"agent_id,omitempty"`

	Service    string        `gorm:"not null" json:"service"`
	SubService string        `json:"sub_service,omitempty"`
	Status     SessionStatus `gorm:"index;not null" json:"status"`

	// AIMessagesSent latches once the fallback schedule has been armed,
	// so concurrent first messages cannot double-schedule.
	AIMessagesSent bool `json:"ai_messages_sent"`

	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName sets the gorm table name.
func (ChatSession) TableName() string { return "chat_sessions" }

// Terminal reports whether no further lifecycle transitions are allowed.
func (s *ChatSession) Terminal() bool {
	return s.Status == SessionCompleted
}

// AgentIs reports whether the given actor id is the session's current agent.
func (s *ChatSession) AgentIs(id string) bool {
	return s.AgentID != nil && *s.AgentID == id
}

// CreateSessionRequest is the request to open a new session.
type CreateSessionRequest struct {
	Service    string `json:"service"`
	SubService string `json:"sub_service,omitempty"`
}

// TransferSessionRequest is the admin request to reassign a session.
type TransferSessionRequest struct {
	AgentID string `json:"agent_id"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []ChatSession `json:"sessions"`
	Total    int           `json:"total"`
}
