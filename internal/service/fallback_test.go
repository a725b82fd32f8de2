package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samrititabalt/supportchat/internal/model"
)

// countPlaceholders is polled from require.Eventually, so it must not
// FailNow; errors report as -1.
func countPlaceholders(t *testing.T, env *testEnv, sessionID string) int {
	t.Helper()

	messages, err := env.messages.ListBySession(context.Background(), testTenant, sessionID, 0, 0)
	if !assert.NoError(t, err) {
		return -1
	}

	var n int
	for _, m := range messages {
		if m.IsAIMessage {
			n++
		}
	}
	return n
}

func TestFallbackEmitsPlaceholders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{10 * time.Millisecond, 30 * time.Millisecond},
	})
	session := env.openSession(t, 5)

	_, err := env.messageSvc.Send(ctx, testTenant, customer, session.ID, &model.SendMessageRequest{Content: "anyone there?"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return countPlaceholders(t, env, session.ID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	messages, err := env.messages.ListBySession(ctx, testTenant, session.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	placeholder := messages[1]
	assert.True(t, placeholder.IsAIMessage)
	assert.Equal(t, model.RoleSystem, placeholder.SenderRole)
	assert.Equal(t, model.MessageSystem, placeholder.MessageType)
	assert.NotEmpty(t, placeholder.Content)
	assert.False(t, placeholder.TokenDeducted)

	// Placeholders are free: only the customer's own message was billed.
	balance, err := env.ledger.Balance(ctx, testTenant, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance)
}

func TestFallbackCancelledByAccept(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{60 * time.Millisecond},
	})
	session := env.openSession(t, 5)

	_, err := env.messageSvc.Send(ctx, testTenant, customer, session.ID, &model.SendMessageRequest{Content: "hello"})
	require.NoError(t, err)

	_, err = env.sessionSvc.Accept(ctx, testTenant, agent, session.ID)
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, countPlaceholders(t, env, session.ID))
}

func TestFallbackSuppressedByAgentReply(t *testing.T) {
	env := newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{80 * time.Millisecond},
	})
	session := env.openSession(t, 5)

	// Arm directly, then let a human reply land before the first emission.
	// The pre-emission check must abandon the schedule even though nobody
	// called Cancel.
	env.fallback.Arm(testTenant, session.ID, time.Now())

	now := time.Now()
	reply := &model.Message{
		ID:          "agent-reply",
		SessionID:   session.ID,
		TenantID:    testTenant,
		SenderID:    agent.ID,
		SenderRole:  model.RoleAgent,
		Content:     "I'm here, give me a second",
		MessageType: model.MessageText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, env.messages.Create(context.Background(), reply))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, countPlaceholders(t, env, session.ID))
}

func TestFallbackArmsExactlyOnce(t *testing.T) {
	env := newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{30 * time.Millisecond},
	})
	session := env.openSession(t, 5)

	armedAt := time.Now()
	env.fallback.Arm(testTenant, session.ID, armedAt)
	env.fallback.Arm(testTenant, session.ID, armedAt)
	env.fallback.Arm(testTenant, session.ID, armedAt)

	require.Eventually(t, func() bool {
		return countPlaceholders(t, env, session.ID) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, countPlaceholders(t, env, session.ID))
}

func TestFallbackSecondMessageDoesNotRearm(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{40 * time.Millisecond},
	})
	session := env.openSession(t, 5)

	_, err := env.messageSvc.Send(ctx, testTenant, customer, session.ID, &model.SendMessageRequest{Content: "first"})
	require.NoError(t, err)
	_, err = env.messageSvc.Send(ctx, testTenant, customer, session.ID, &model.SendMessageRequest{Content: "second"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return countPlaceholders(t, env, session.ID) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, countPlaceholders(t, env, session.ID))
}

func TestFallbackShutdownStopsSchedules(t *testing.T) {
	env := newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{100 * time.Millisecond},
	})
	session := env.openSession(t, 5)

	env.fallback.Arm(testTenant, session.ID, time.Now())
	env.fallback.Shutdown()

	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, countPlaceholders(t, env, session.ID))
}
