package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/samrititabalt/supportchat/internal/model"
)

// SessionStore persists chat sessions. Every raced transition (agent
// assignment, pending activation, the AI latch) is a single conditional
// UPDATE so concurrent writers cannot both win.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, session *model.ChatSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID loads a session scoped to a tenant.
func (s *SessionStore) FindByID(ctx context.Context, tenantID, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

// Assign sets the agent on an unassigned session. The guard `agent_id IS
// NULL` means exactly one of two racing agents succeeds; the loser gets
// ErrAlreadyAssigned (or ErrSessionCompleted when the session is terminal).
func (s *SessionStore) Assign(ctx context.Context, tenantID, id, agentID string, now time.Time) (*model.ChatSession, error) {
	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND agent_id IS NULL AND status IN ?",
			id, tenantID, []model.SessionStatus{model.SessionPending, model.SessionActive}).
		Updates(map[string]any{
			"agent_id":    agentID,
			"status":      model.SessionActive,
			"assigned_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to assign session: %w", res.Error)
	}

	session, err := s.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 1 {
		return session, nil
	}
	if session.Terminal() {
		return nil, ErrSessionCompleted
	}
	return session, ErrAlreadyAssigned
}

// Transfer reassigns the session to a new agent and marks it transferred.
// Allowed in any non-completed state. Returns the session before the update
// so the caller can release the previous agent's membership.
func (s *SessionStore) Transfer(ctx context.Context, tenantID, id, newAgentID string, now time.Time) (before, after *model.ChatSession, err error) {
	before, err = s.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if before.Terminal() {
		return nil, nil, ErrSessionCompleted
	}

	updates := map[string]any{
		"agent_id":   newAgentID,
		"status":     model.SessionTransferred,
		"updated_at": now,
	}
	// A transfer straight out of pending is also the first assignment.
	if before.AssignedAt == nil {
		updates["assigned_at"] = now
	}

	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", id, tenantID, model.SessionCompleted).
		Updates(updates)
	if res.Error != nil {
		return nil, nil, fmt.Errorf("failed to transfer session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil, ErrSessionCompleted
	}

	after, err = s.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Complete marks the session completed. Conditional on the caller still
// being the owning agent so a concurrent transfer cannot be clobbered.
// CompletedAt is written exactly once.
func (s *SessionStore) Complete(ctx context.Context, tenantID, id, agentID string, now time.Time) (*model.ChatSession, error) {
	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND agent_id = ? AND status IN ?",
			id, tenantID, agentID, []model.SessionStatus{model.SessionActive, model.SessionTransferred}).
		Updates(map[string]any{
			"status":       model.SessionCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to complete session: %w", res.Error)
	}

	session, err := s.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 1 {
		return session, nil
	}
	if session.Terminal() {
		// Idempotent when already completed.
		return session, nil
	}
	return nil, ErrNotSessionAgent
}

// ActivateIfPending flips a pending session to active without assigning an
// agent. The first message on a session triggers this. Returns whether the
// transition happened.
func (s *SessionStore) ActivateIfPending(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, model.SessionPending).
		Updates(map[string]any{
			"status":     model.SessionActive,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to activate session: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkAIScheduled acquires the fallback latch. Exactly one caller per
// session ever sees true.
func (s *SessionStore) MarkAIScheduled(ctx context.Context, tenantID, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND tenant_id = ? AND ai_messages_sent = ?", id, tenantID, false).
		Update("ai_messages_sent", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark fallback scheduled: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListForCustomer returns a customer's sessions, newest first.
func (s *SessionStore) ListForCustomer(ctx context.Context, tenantID, customerID string) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list customer sessions: %w", err)
	}
	return sessions, nil
}

// ListForAgent returns an agent's sessions, newest first.
func (s *SessionStore) ListForAgent(ctx context.Context, tenantID, agentID string) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND agent_id = ?", tenantID, agentID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list agent sessions: %w", err)
	}
	return sessions, nil
}
