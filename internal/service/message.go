package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/notify"
	"github.com/samrititabalt/supportchat/internal/store"
	"github.com/samrititabalt/supportchat/pkg/logger"
	"github.com/samrititabalt/supportchat/pkg/metrics"
)

// messageUnitCost is the ledger price of one customer-authored message.
const messageUnitCost = 1

// MessageService owns the message lifecycle: send, list, read receipts,
// edit, and soft delete. Every operation authorizes the actor against the
// session first and fails closed.
type MessageService struct {
	messages *store.MessageStore
	sessions *store.SessionStore
	ledger   *store.LedgerStore
	notifier notify.Notifier
	fallback *FallbackScheduler
	logger   *logger.Logger
}

// NewMessageService creates a message service.
func NewMessageService(
	messages *store.MessageStore,
	sessions *store.SessionStore,
	ledger *store.LedgerStore,
	notifier notify.Notifier,
	fallback *FallbackScheduler,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		messages: messages,
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
		fallback: fallback,
		logger:   log,
	}
}

// Send persists a text or attachment message. Customer-authored messages
// debit one token before anything is written; an insufficient balance
// rejects the whole operation with no partial write. The first message on a
// pending session activates it without assigning an agent.
func (s *MessageService) Send(ctx context.Context, tenantID string, actor model.Actor, sessionID string, req *model.SendMessageRequest) (*model.Message, error) {
	session, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	participant := Authorize(session, actor)
	if participant == ParticipantNone {
		return nil, ErrUnauthorized
	}
	// Completed sessions accept no further writes from ordinary
	// participants; administrative notes remain possible.
	if session.Terminal() && participant != ParticipantAdmin {
		return nil, store.ErrSessionCompleted
	}

	content := strings.TrimSpace(req.Content)

	for _, a := range req.Attachments {
		switch a.Kind {
		case model.MessageImage, model.MessageFile, model.MessageAudio:
		default:
			return nil, ErrInvalidKind
		}
	}

	switch req.Type {
	case "", model.MessageText:
		if len(req.Attachments) == 0 && content == "" {
			return nil, ErrEmptyContent
		}
	case model.MessageImage, model.MessageFile, model.MessageAudio:
		if len(req.Attachments) == 0 {
			return nil, ErrNoAttachments
		}
	default:
		return nil, ErrInvalidKind
	}

	var replyTo *string
	if req.ReplyTo != "" {
		target, err := s.messages.FindByID(ctx, tenantID, req.ReplyTo)
		if err != nil || target.SessionID != sessionID {
			return nil, ErrInvalidReply
		}
		replyTo = &req.ReplyTo
	}

	now := time.Now()
	msg := &model.Message{
		ID:          uuid.Must(uuid.NewV7()).String(),
		SessionID:   sessionID,
		TenantID:    tenantID,
		SenderID:    actor.ID,
		SenderRole:  actor.Role,
		Content:     content,
		MessageType: model.MessageText,
		ReplyToID:   replyTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if len(req.Attachments) > 0 {
		msg.MessageType = req.Attachments[0].Kind
		msg.FileURL = req.Attachments[0].URL
		msg.FileName = req.Attachments[0].FileName
		for _, a := range req.Attachments {
			msg.Attachments = append(msg.Attachments, model.Attachment{
				MessageID: msg.ID,
				Kind:      a.Kind,
				URL:       a.URL,
				StoreID:   a.StoreID,
				FileName:  a.FileName,
				Size:      a.Size,
				Width:     a.Width,
				Height:    a.Height,
				Duration:  a.Duration,
			})
		}
	}

	// Only customer senders are billed. The debit happens before the
	// message is persisted; if persistence then fails, the unit is
	// credited back.
	if actor.Role == model.RoleCustomer {
		if _, err := s.ledger.Debit(ctx, tenantID, actor.ID, messageUnitCost, "chat message", &msg.ID); err != nil {
			if Classify(err) == KindInsufficientBalance {
				metrics.InsufficientBalanceTotal.WithLabelValues(tenantID).Inc()
			}
			return nil, err
		}
		msg.TokenDeducted = true
		metrics.TokenDebitsTotal.WithLabelValues(tenantID).Inc()
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		if msg.TokenDeducted {
			if _, cerr := s.ledger.Credit(ctx, tenantID, actor.ID, messageUnitCost,
				model.TransactionAdd, "refund: message persistence failed", nil, nil); cerr != nil {
				s.logger.Error("failed to refund debit after persistence failure",
					zap.String("customer_id", actor.ID), zap.Error(cerr))
			}
		}
		return nil, err
	}

	if session.Status == model.SessionPending {
		if _, err := s.sessions.ActivateIfPending(ctx, tenantID, sessionID, now); err != nil {
			s.logger.Warn("failed to activate pending session", zap.Error(err))
		}
	}

	switch {
	case actor.Role == model.RoleCustomer:
		// First customer message arms the fallback schedule exactly once.
		if !session.AIMessagesSent {
			s.fallback.Arm(tenantID, sessionID, now)
		}
	case actor.Role == model.RoleAgent:
		// A human reply abandons any remaining placeholder schedule.
		s.fallback.Cancel(sessionID)
	}

	metrics.MessagesTotal.WithLabelValues(tenantID, string(actor.Role)).Inc()
	s.publish(ctx, msg, model.EventMessageCreated)

	return msg, nil
}

// List returns a session's messages in chronological order.
func (s *MessageService) List(ctx context.Context, tenantID string, actor model.Actor, sessionID string, limit, offset int) (*model.ListMessagesResponse, error) {
	session, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if Authorize(session, actor) == ParticipantNone {
		return nil, ErrUnauthorized
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	messages, err := s.messages.ListBySession(ctx, tenantID, sessionID, limit+1, offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return &model.ListMessagesResponse{Messages: messages, HasMore: hasMore}, nil
}

// MarkRead flips the read receipt. Only the recipient party may do so: the
// side opposite the one that authored the message. Administrators are not a
// conversation party and are denied. Idempotent.
func (s *MessageService) MarkRead(ctx context.Context, tenantID string, actor model.Actor, messageID string) (*model.Message, error) {
	msg, err := s.messages.FindByID(ctx, tenantID, messageID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.FindByID(ctx, tenantID, msg.SessionID)
	if err != nil {
		return nil, err
	}

	participant := Authorize(session, actor)
	switch participant {
	case ParticipantCustomer:
		// Customers read agent and system messages, including AI
		// placeholders nominally attributed to them.
		if msg.AuthoredByCustomerSide() {
			return nil, ErrNotRecipient
		}
	case ParticipantAgent:
		if !msg.AuthoredByCustomerSide() {
			return nil, ErrNotRecipient
		}
	default:
		return nil, ErrUnauthorized
	}

	if err := s.messages.MarkRead(ctx, tenantID, messageID, time.Now()); err != nil {
		return nil, err
	}
	return s.messages.FindByID(ctx, tenantID, messageID)
}

// Edit replaces the content of the actor's own message. The actor must
// still be a party to the session; the pre-edit content is preserved
// exactly once across the message's life.
func (s *MessageService) Edit(ctx context.Context, tenantID string, actor model.Actor, messageID, newContent string) (*model.Message, error) {
	msg, err := s.messages.FindByID(ctx, tenantID, messageID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.FindByID(ctx, tenantID, msg.SessionID)
	if err != nil {
		return nil, err
	}
	if Authorize(session, actor) == ParticipantNone {
		return nil, ErrUnauthorized
	}
	if msg.SenderID != actor.ID || msg.IsAIMessage {
		return nil, ErrNotMessageSender
	}
	if msg.IsDeleted {
		return nil, ErrCannotEditDeleted
	}

	content := strings.TrimSpace(newContent)
	if content == "" {
		return nil, ErrEmptyContent
	}

	edited, err := s.messages.Edit(ctx, tenantID, messageID, content, time.Now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, edited, model.EventMessageEdited)
	return edited, nil
}

// SoftDelete clears the message's content, file fields, and attachments
// while preserving the last live content for audit. Sender only, and the
// sender must still be a party to the session.
func (s *MessageService) SoftDelete(ctx context.Context, tenantID string, actor model.Actor, messageID string) (*model.Message, error) {
	msg, err := s.messages.FindByID(ctx, tenantID, messageID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.FindByID(ctx, tenantID, msg.SessionID)
	if err != nil {
		return nil, err
	}
	if Authorize(session, actor) == ParticipantNone {
		return nil, ErrUnauthorized
	}
	if msg.SenderID != actor.ID || msg.IsAIMessage {
		return nil, ErrNotMessageSender
	}

	deleted, err := s.messages.SoftDelete(ctx, tenantID, messageID, time.Now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, deleted, model.EventMessageDeleted)
	return deleted, nil
}

// UnreadCount reports how many messages from the opposite party the actor
// has not read yet on a session.
func (s *MessageService) UnreadCount(ctx context.Context, tenantID string, actor model.Actor, sessionID string) (int64, error) {
	session, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return 0, err
	}

	switch Authorize(session, actor) {
	case ParticipantCustomer:
		return s.messages.UnreadCount(ctx, tenantID, sessionID, model.RoleAgent)
	case ParticipantAgent, ParticipantAdmin:
		return s.messages.UnreadCount(ctx, tenantID, sessionID, model.RoleCustomer)
	default:
		return 0, ErrUnauthorized
	}
}

func (s *MessageService) publish(ctx context.Context, msg *model.Message, event string) {
	if err := s.notifier.Publish(ctx, msg.TenantID, msg.SessionID, event, msg); err != nil {
		metrics.NotifyFailuresTotal.WithLabelValues(event).Inc()
		s.logger.Warn("failed to publish message event",
			zap.String("event", event),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}
