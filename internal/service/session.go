package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samrititabalt/supportchat/internal/membership"
	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/notify"
	"github.com/samrititabalt/supportchat/internal/store"
	"github.com/samrititabalt/supportchat/pkg/logger"
	"github.com/samrititabalt/supportchat/pkg/metrics"
)

// Participant is the capability an actor holds on a session. Message
// operations dispatch on this instead of re-deriving role comparisons.
type Participant int

const (
	ParticipantNone Participant = iota
	ParticipantCustomer
	ParticipantAgent
	ParticipantAdmin
)

// SessionService owns the session lifecycle: creation, assignment,
// transfer, completion, and participant authorization.
type SessionService struct {
	sessions   *store.SessionStore
	ledger     *store.LedgerStore
	membership membership.Index
	notifier   notify.Notifier
	fallback   *FallbackScheduler
	logger     *logger.Logger
}

// NewSessionService creates a session service.
func NewSessionService(
	sessions *store.SessionStore,
	ledger *store.LedgerStore,
	idx membership.Index,
	notifier notify.Notifier,
	fallback *FallbackScheduler,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		sessions:   sessions,
		ledger:     ledger,
		membership: idx,
		notifier:   notifier,
		fallback:   fallback,
		logger:     log,
	}
}

// Authorize returns the capability the actor holds on the session. It fails
// closed: an actor claiming the agent role on an unassigned session gets
// ParticipantNone.
func Authorize(session *model.ChatSession, actor model.Actor) Participant {
	if actor.IsAdmin() {
		return ParticipantAdmin
	}
	if actor.Role == model.RoleCustomer && session.CustomerID == actor.ID {
		return ParticipantCustomer
	}
	if actor.Role == model.RoleAgent && session.AgentIs(actor.ID) {
		return ParticipantAgent
	}
	return ParticipantNone
}

// Create opens a new pending session for the customer.
func (s *SessionService) Create(ctx context.Context, tenantID string, actor model.Actor, req *model.CreateSessionRequest) (*model.ChatSession, error) {
	now := time.Now()
	session := &model.ChatSession{
		ID:         uuid.Must(uuid.NewV7()).String(),
		TenantID:   tenantID,
		CustomerID: actor.ID,
		Service:    req.Service,
		SubService: req.SubService,
		Status:     model.SessionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	// The customer row must exist before the first send can debit it.
	if err := s.ledger.EnsureCustomer(ctx, tenantID, actor.ID); err != nil {
		s.logger.Warn("failed to ensure customer ledger row", zap.Error(err))
	}

	metrics.SessionTransitionsTotal.WithLabelValues(tenantID, string(model.SessionPending)).Inc()
	s.publishSession(ctx, session)

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("tenant_id", tenantID),
		zap.String("customer_id", actor.ID),
	)
	return session, nil
}

// Get returns the session if the actor is a party to it.
func (s *SessionService) Get(ctx context.Context, tenantID string, actor model.Actor, sessionID string) (*model.ChatSession, error) {
	session, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if Authorize(session, actor) == ParticipantNone {
		return nil, ErrUnauthorized
	}
	return session, nil
}

// Accept assigns the calling agent to an unassigned session. Idempotent
// when the caller already holds the session; a raced assignment surfaces
// as ErrAlreadyAssigned.
func (s *SessionService) Accept(ctx context.Context, tenantID string, actor model.Actor, sessionID string) (*model.ChatSession, error) {
	if actor.Role != model.RoleAgent && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	session, err := s.sessions.Assign(ctx, tenantID, sessionID, actor.ID, time.Now())
	if errors.Is(err, store.ErrAlreadyAssigned) {
		if session != nil && session.AgentIs(actor.ID) {
			return session, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := s.membership.AddToAgent(ctx, actor.ID, sessionID); err != nil {
		s.logger.Warn("failed to update agent membership", zap.Error(err))
	}

	// A human has engaged; no placeholder message should appear after this.
	s.fallback.Cancel(sessionID)

	metrics.SessionTransitionsTotal.WithLabelValues(tenantID, string(model.SessionActive)).Inc()
	s.publishSession(ctx, session)

	s.logger.Info("session accepted",
		zap.String("session_id", sessionID),
		zap.String("agent_id", actor.ID),
	)
	return session, nil
}

// Transfer reassigns the session to a new agent. Administrative actors
// only; allowed in any non-completed state.
func (s *SessionService) Transfer(ctx context.Context, tenantID string, actor model.Actor, sessionID, newAgentID string) (*model.ChatSession, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	before, after, err := s.sessions.Transfer(ctx, tenantID, sessionID, newAgentID, time.Now())
	if err != nil {
		return nil, err
	}

	if before.AgentID != nil {
		if err := s.membership.RemoveFromAgent(ctx, *before.AgentID, sessionID); err != nil {
			s.logger.Warn("failed to release previous agent membership", zap.Error(err))
		}
	}
	if err := s.membership.AddToAgent(ctx, newAgentID, sessionID); err != nil {
		s.logger.Warn("failed to update agent membership", zap.Error(err))
	}

	s.fallback.Cancel(sessionID)

	metrics.SessionTransitionsTotal.WithLabelValues(tenantID, string(model.SessionTransferred)).Inc()
	s.publishSession(ctx, after)

	s.logger.Info("session transferred",
		zap.String("session_id", sessionID),
		zap.String("agent_id", newAgentID),
	)
	return after, nil
}

// Complete closes the session. Only the current agent may complete it;
// repeating the call on a completed session is a no-op.
func (s *SessionService) Complete(ctx context.Context, tenantID string, actor model.Actor, sessionID string) (*model.ChatSession, error) {
	if actor.Role != model.RoleAgent {
		return nil, ErrUnauthorized
	}

	session, err := s.sessions.Complete(ctx, tenantID, sessionID, actor.ID, time.Now())
	if err != nil {
		return nil, err
	}

	if session.AgentID != nil {
		if err := s.membership.RemoveFromAgent(ctx, *session.AgentID, sessionID); err != nil {
			s.logger.Warn("failed to release agent membership", zap.Error(err))
		}
	}

	s.fallback.Cancel(sessionID)

	metrics.SessionTransitionsTotal.WithLabelValues(tenantID, string(model.SessionCompleted)).Inc()
	s.publishSession(ctx, session)

	s.logger.Info("session completed", zap.String("session_id", sessionID))
	return session, nil
}

// List returns the actor's own sessions: customers see the sessions they
// opened, agents the ones they hold.
func (s *SessionService) List(ctx context.Context, tenantID string, actor model.Actor) ([]model.ChatSession, error) {
	switch actor.Role {
	case model.RoleCustomer:
		return s.sessions.ListForCustomer(ctx, tenantID, actor.ID)
	case model.RoleAgent, model.RoleAdmin:
		return s.sessions.ListForAgent(ctx, tenantID, actor.ID)
	default:
		return nil, ErrUnauthorized
	}
}

func (s *SessionService) publishSession(ctx context.Context, session *model.ChatSession) {
	if err := s.notifier.Publish(ctx, session.TenantID, session.ID, model.EventSessionUpdated, session); err != nil {
		metrics.NotifyFailuresTotal.WithLabelValues(model.EventSessionUpdated).Inc()
		s.logger.Warn("failed to publish session event", zap.Error(err))
	}
}
