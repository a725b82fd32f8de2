package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samrititabalt/supportchat/internal/model"
)

func TestSessionAssign(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	got, err := sessions.Assign(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, got.Status)
	require.NotNil(t, got.AgentID)
	assert.Equal(t, "agent-1", *got.AgentID)
	assert.NotNil(t, got.AssignedAt)

	// A second agent arriving later loses and learns who holds the session.
	got, err = sessions.Assign(ctx, testTenant, session.ID, "agent-2", time.Now())
	require.ErrorIs(t, err, ErrAlreadyAssigned)
	require.NotNil(t, got)
	assert.Equal(t, "agent-1", *got.AgentID)
}

func TestSessionAssignRace(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		agentID := fmt.Sprintf("agent-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.Assign(ctx, testTenant, session.ID, agentID, time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won int
	for err := range results {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, ErrAlreadyAssigned)
		}
	}
	assert.Equal(t, 1, won)
}

func TestSessionAssignCompleted(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	_, err := sessions.Assign(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)
	_, err = sessions.Complete(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)

	_, err = sessions.Assign(ctx, testTenant, session.ID, "agent-2", time.Now())
	require.ErrorIs(t, err, ErrSessionCompleted)
}

func TestSessionComplete(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	_, err := sessions.Assign(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)

	// Only the owning agent may complete.
	_, err = sessions.Complete(ctx, testTenant, session.ID, "agent-2", time.Now())
	require.ErrorIs(t, err, ErrNotSessionAgent)

	got, err := sessions.Complete(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	first := *got.CompletedAt

	// Completing again is a no-op and keeps the original timestamp.
	got, err = sessions.Complete(ctx, testTenant, session.ID, "agent-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, *got.CompletedAt)
}

func TestSessionTransfer(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	_, err := sessions.Assign(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)

	before, after, err := sessions.Transfer(ctx, testTenant, session.ID, "agent-2", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "agent-1", *before.AgentID)
	assert.Equal(t, "agent-2", *after.AgentID)
	assert.Equal(t, model.SessionTransferred, after.Status)
}

func TestSessionTransferFromPendingStampsAssignment(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	before, after, err := sessions.Transfer(ctx, testTenant, session.ID, "agent-2", time.Now())
	require.NoError(t, err)
	assert.Nil(t, before.AgentID)
	assert.NotNil(t, after.AssignedAt)
}

func TestSessionTransferCompleted(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	_, err := sessions.Assign(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)
	_, err = sessions.Complete(ctx, testTenant, session.ID, "agent-1", time.Now())
	require.NoError(t, err)

	_, _, err = sessions.Transfer(ctx, testTenant, session.ID, "agent-2", time.Now())
	require.ErrorIs(t, err, ErrSessionCompleted)
}

func TestSessionActivateIfPending(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	flipped, err := sessions.ActivateIfPending(ctx, testTenant, session.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, flipped)

	got, err := sessions.FindByID(ctx, testTenant, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, got.Status)
	assert.Nil(t, got.AgentID)

	flipped, err = sessions.ActivateIfPending(ctx, testTenant, session.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestSessionMarkAIScheduledLatch(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	type outcome struct {
		ok  bool
		err error
	}

	var wg sync.WaitGroup
	results := make(chan outcome, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := sessions.MarkAIScheduled(ctx, testTenant, session.ID)
			results <- outcome{ok: ok, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var acquired int
	for res := range results {
		require.NoError(t, res.err)
		if res.ok {
			acquired++
		}
	}
	assert.Equal(t, 1, acquired)
}

func TestSessionTenantScoping(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore(openTestDB(t))
	session := makeSession(t, sessions, "cust-1")

	_, err := sessions.FindByID(ctx, "other-tenant", session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
