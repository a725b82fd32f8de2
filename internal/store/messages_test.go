package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samrititabalt/supportchat/internal/model"
)

func TestMessageEditSnapshotsOriginalOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	msg := makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "first draft")

	edited, err := messages.Edit(ctx, testTenant, msg.ID, "second draft", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "second draft", edited.Content)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.OriginalContent)
	assert.Equal(t, "first draft", *edited.OriginalContent)

	// Later edits must not overwrite the snapshot.
	edited, err = messages.Edit(ctx, testTenant, msg.ID, "third draft", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "third draft", edited.Content)
	require.NotNil(t, edited.OriginalContent)
	assert.Equal(t, "first draft", *edited.OriginalContent)
}

func TestMessageSoftDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	now := time.Now()
	msg := &model.Message{
		ID:          newID(),
		SessionID:   session.ID,
		TenantID:    testTenant,
		SenderID:    "cust-1",
		SenderRole:  model.RoleCustomer,
		Content:     "see attached",
		MessageType: model.MessageImage,
		FileURL:     "https://cdn.example.com/a.png",
		FileName:    "a.png",
		Attachments: []model.Attachment{
			{Kind: model.MessageImage, URL: "https://cdn.example.com/a.png", FileName: "a.png", Size: 1024},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, messages.Create(ctx, msg))

	deleted, err := messages.SoftDelete(ctx, testTenant, msg.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.NotNil(t, deleted.DeletedAt)
	assert.Empty(t, deleted.Content)
	assert.Empty(t, deleted.FileURL)
	assert.Empty(t, deleted.FileName)
	assert.Empty(t, deleted.Attachments)
	require.NotNil(t, deleted.OriginalContent)
	assert.Equal(t, "see attached", *deleted.OriginalContent)

	// Deleting twice fails; the record itself stays addressable.
	_, err = messages.SoftDelete(ctx, testTenant, msg.ID, time.Now())
	require.ErrorIs(t, err, ErrAlreadyDeleted)

	got, err := messages.FindByID(ctx, testTenant, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

func TestMessageSoftDeleteKeepsEditSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	msg := makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "original")

	_, err := messages.Edit(ctx, testTenant, msg.ID, "revised", time.Now())
	require.NoError(t, err)

	deleted, err := messages.SoftDelete(ctx, testTenant, msg.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, deleted.OriginalContent)
	assert.Equal(t, "original", *deleted.OriginalContent)
}

func TestMessageEditDeleted(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	msg := makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "hello")

	_, err := messages.SoftDelete(ctx, testTenant, msg.ID, time.Now())
	require.NoError(t, err)

	_, err = messages.Edit(ctx, testTenant, msg.ID, "too late", time.Now())
	require.ErrorIs(t, err, ErrAlreadyDeleted)
}

func TestMessageMarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	msg := makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "hello")

	require.NoError(t, messages.MarkRead(ctx, testTenant, msg.ID, time.Now()))
	got, err := messages.FindByID(ctx, testTenant, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	first := *got.ReadAt

	require.NoError(t, messages.MarkRead(ctx, testTenant, msg.ID, time.Now().Add(time.Hour)))
	got, err = messages.FindByID(ctx, testTenant, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got.ReadAt)
}

func TestMessageListOrdering(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	base := time.Now()
	for i := 0; i < 3; i++ {
		msg := &model.Message{
			ID:          newID(),
			SessionID:   session.ID,
			TenantID:    testTenant,
			SenderID:    "cust-1",
			SenderRole:  model.RoleCustomer,
			Content:     "msg",
			MessageType: model.MessageText,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
			UpdatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, messages.Create(ctx, msg))
	}

	got, err := messages.ListBySession(ctx, testTenant, session.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].CreatedAt.Before(got[2].CreatedAt))

	page, err := messages.ListBySession(ctx, testTenant, session.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, got[1].ID, page[0].ID)
}

func TestHasAgentMessageSinceIgnoresPlaceholders(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	since := time.Now().Add(-time.Minute)

	replied, err := messages.HasAgentMessageSince(ctx, testTenant, session.ID, since)
	require.NoError(t, err)
	assert.False(t, replied)

	// An AI placeholder is not a human reply.
	now := time.Now()
	placeholder := &model.Message{
		ID:          newID(),
		SessionID:   session.ID,
		TenantID:    testTenant,
		SenderID:    "cust-1",
		SenderRole:  model.RoleSystem,
		Content:     "an agent will be with you shortly",
		MessageType: model.MessageSystem,
		IsAIMessage: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, messages.Create(ctx, placeholder))

	replied, err = messages.HasAgentMessageSince(ctx, testTenant, session.ID, since)
	require.NoError(t, err)
	assert.False(t, replied)

	makeMessage(t, messages, session.ID, "agent-1", model.RoleAgent, "hello, how can I help?")

	replied, err = messages.HasAgentMessageSince(ctx, testTenant, session.ID, since)
	require.NoError(t, err)
	assert.True(t, replied)
}

func TestUnreadCount(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)

	session := makeSession(t, sessions, "cust-1")
	makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "one")
	makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "two")
	read := makeMessage(t, messages, session.ID, "cust-1", model.RoleCustomer, "three")
	require.NoError(t, messages.MarkRead(ctx, testTenant, read.ID, time.Now()))

	count, err := messages.UnreadCount(ctx, testTenant, session.ID, model.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
