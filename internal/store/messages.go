package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/samrititabalt/supportchat/internal/model"
)

// MessageStore persists the conversation log. The log is append-only with
// soft edits: the first-write-wins rule for original_content is enforced by
// a conditional UPDATE inside the edit/delete transaction rather than by
// call-site discipline.
type MessageStore struct {
	db *gorm.DB
}

// NewMessageStore creates a message store.
func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Create appends a message with its attachments in one transaction.
func (s *MessageStore) Create(ctx context.Context, msg *model.Message) error {
	for i := range msg.Attachments {
		msg.Attachments[i].Position = i
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindByID loads a message with its attachments.
func (s *MessageStore) FindByID(ctx context.Context, tenantID, id string) (*model.Message, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

// ListBySession returns a session's messages in chronological order.
func (s *MessageStore) ListBySession(ctx context.Context, tenantID, sessionID string, limit, offset int) ([]model.Message, error) {
	var messages []model.Message
	q := s.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("session_id = ? AND tenant_id = ?", sessionID, tenantID).
		Order("created_at ASC, id ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// MarkRead sets the read receipt. Idempotent: marking an already-read
// message is a no-op that keeps the original read_at.
func (s *MessageStore) MarkRead(ctx context.Context, tenantID, id string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND tenant_id = ? AND is_read = ?", id, tenantID, false).
		Updates(map[string]any{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark message read: %w", res.Error)
	}
	return nil
}

// Edit replaces the message content. On the first edit the live content is
// snapshotted into original_content; later edits leave the snapshot alone.
func (s *MessageStore) Edit(ctx context.Context, tenantID, id, newContent string, now time.Time) (*model.Message, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg model.Message
		err := tx.Where("id = ? AND tenant_id = ?", id, tenantID).First(&msg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if msg.IsDeleted {
			return ErrAlreadyDeleted
		}

		// First write wins: only a NULL snapshot is populated.
		if err := tx.Model(&model.Message{}).
			Where("id = ? AND original_content IS NULL", id).
			Update("original_content", gorm.Expr("content")).Error; err != nil {
			return err
		}

		return tx.Model(&model.Message{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"content":    newContent,
				"is_edited":  true,
				"edited_at":  now,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrAlreadyDeleted) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return s.FindByID(ctx, tenantID, id)
}

// SoftDelete clears the destructive fields (content, file url/name,
// attachments) and marks the message deleted, preserving the last live
// content in original_content if no edit snapshotted it earlier.
func (s *MessageStore) SoftDelete(ctx context.Context, tenantID, id string, now time.Time) (*model.Message, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Message{}).
			Where("id = ? AND tenant_id = ? AND original_content IS NULL", id, tenantID).
			Update("original_content", gorm.Expr("content")).Error; err != nil {
			return err
		}

		res := tx.Model(&model.Message{}).
			Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
			Updates(map[string]any{
				"content":    "",
				"file_url":   "",
				"file_name":  "",
				"is_deleted": true,
				"deleted_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Message{}).
				Where("id = ? AND tenant_id = ?", id, tenantID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrMessageNotFound
			}
			return ErrAlreadyDeleted
		}

		return tx.Where("message_id = ?", id).Delete(&model.Attachment{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrAlreadyDeleted) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	return s.FindByID(ctx, tenantID, id)
}

// HasAgentMessageSince reports whether a human agent has replied on the
// session since the given time. AI placeholders never count.
func (s *MessageStore) HasAgentMessageSince(ctx context.Context, tenantID, sessionID string, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("session_id = ? AND tenant_id = ? AND sender_role = ? AND is_ai_message = ? AND created_at >= ?",
			sessionID, tenantID, model.RoleAgent, false, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for agent messages: %w", err)
	}
	return count > 0, nil
}

// UnreadCount counts unread, undeleted messages on a session authored by
// the given role. Feeds the inbox badge in the surrounding UI.
func (s *MessageStore) UnreadCount(ctx context.Context, tenantID, sessionID string, authoredBy model.SenderRole) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("session_id = ? AND tenant_id = ? AND sender_role = ? AND is_read = ? AND is_deleted = ?",
			sessionID, tenantID, authoredBy, false, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
