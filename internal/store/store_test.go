package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/samrititabalt/supportchat/internal/model"
)

const testTenant = "tenant-1"

// openTestDB opens an in-memory database. The pool is pinned to a single
// connection so every goroutine sees the same in-memory instance.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func makeSession(t *testing.T, s *SessionStore, customerID string) *model.ChatSession {
	t.Helper()

	now := time.Now()
	session := &model.ChatSession{
		ID:         newID(),
		TenantID:   testTenant,
		CustomerID: customerID,
		Service:    "billing",
		Status:     model.SessionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.Create(context.Background(), session))
	return session
}

func makeMessage(t *testing.T, s *MessageStore, sessionID, senderID string, role model.SenderRole, content string) *model.Message {
	t.Helper()

	now := time.Now()
	msg := &model.Message{
		ID:          newID(),
		SessionID:   sessionID,
		TenantID:    testTenant,
		SenderID:    senderID,
		SenderRole:  role,
		Content:     content,
		MessageType: model.MessageText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Create(context.Background(), msg))
	return msg
}
