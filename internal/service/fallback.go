package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samrititabalt/supportchat/internal/llm"
	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/notify"
	"github.com/samrititabalt/supportchat/internal/store"
	"github.com/samrititabalt/supportchat/pkg/logger"
	"github.com/samrititabalt/supportchat/pkg/metrics"
)

// defaultFallbackLines are the canned placeholder messages used when no LLM
// provider is configured.
var defaultFallbackLines = []string{
	"Thanks for reaching out! A support agent will be with you shortly.",
	"We're still connecting you with an agent. Thanks for your patience.",
	"Our agents are busier than usual right now, but your request is in the queue and someone will reply as soon as possible.",
}

// FallbackConfig tunes the AI fallback schedule.
type FallbackConfig struct {
	// Delays are measured from the moment the schedule is armed. One
	// placeholder message is due per entry.
	Delays []time.Duration

	// Lines override the canned placeholder content. Ignored when an LLM
	// client is wired.
	Lines []string

	// Model passed to the LLM client, empty for the provider default.
	Model string
}

// DefaultFallbackConfig returns the standard three-message schedule.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		Delays: []time.Duration{10 * time.Second, 45 * time.Second, 2 * time.Minute},
		Lines:  defaultFallbackLines,
	}
}

// FallbackScheduler injects placeholder assistant messages into sessions
// waiting for a human agent. Each session gets at most one schedule
// (guarded by the ai_messages_sent latch), modeled as a cancellable task
// owned by the session's lifecycle rather than fire-and-forget timers.
type FallbackScheduler struct {
	sessions *store.SessionStore
	messages *store.MessageStore
	notifier notify.Notifier
	llm      llm.Client // nil when no provider is configured
	cfg      FallbackConfig
	logger   *logger.Logger

	root   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewFallbackScheduler creates the scheduler. Shutdown must be called to
// release in-flight schedules.
func NewFallbackScheduler(
	sessions *store.SessionStore,
	messages *store.MessageStore,
	notifier notify.Notifier,
	client llm.Client,
	cfg FallbackConfig,
	log *logger.Logger,
) *FallbackScheduler {
	if len(cfg.Delays) == 0 {
		cfg = DefaultFallbackConfig()
	}
	if len(cfg.Lines) == 0 {
		cfg.Lines = defaultFallbackLines
	}

	root, stop := context.WithCancel(context.Background())
	return &FallbackScheduler{
		sessions: sessions,
		messages: messages,
		notifier: notifier,
		llm:      client,
		cfg:      cfg,
		logger:   log,
		root:     root,
		stop:     stop,
		active:   make(map[string]context.CancelFunc),
	}
}

// Arm schedules the placeholder sequence for a session. The ai_messages_sent
// latch is acquired synchronously, so concurrent first messages cannot
// double-schedule; only the caller that wins the latch spawns the task.
func (f *FallbackScheduler) Arm(tenantID, sessionID string, armedAt time.Time) {
	acquired, err := f.sessions.MarkAIScheduled(context.Background(), tenantID, sessionID)
	if err != nil {
		f.logger.Warn("failed to acquire fallback latch",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if !acquired {
		return
	}

	ctx, cancel := context.WithCancel(f.root)

	f.mu.Lock()
	f.active[sessionID] = cancel
	f.mu.Unlock()

	metrics.FallbackScheduled.Inc()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.deregister(sessionID)
		f.run(ctx, tenantID, sessionID, armedAt)
	}()
}

// Cancel abandons any remaining schedule for the session. Safe to call for
// sessions with no schedule.
func (f *FallbackScheduler) Cancel(sessionID string) {
	f.mu.Lock()
	cancel, ok := f.active[sessionID]
	f.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels all schedules and waits for their tasks to return.
func (f *FallbackScheduler) Shutdown() {
	f.stop()
	f.wg.Wait()
}

func (f *FallbackScheduler) deregister(sessionID string) {
	f.mu.Lock()
	if cancel, ok := f.active[sessionID]; ok {
		cancel()
		delete(f.active, sessionID)
	}
	f.mu.Unlock()
}

func (f *FallbackScheduler) run(ctx context.Context, tenantID, sessionID string, armedAt time.Time) {
	log := f.logger.WithSession(tenantID, sessionID)

	for i, delay := range f.cfg.Delays {
		due := armedAt.Add(delay)
		wait := time.Until(due)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				metrics.FallbackSuppressedTotal.Inc()
				return
			case <-timer.C:
			}
		}

		suppressed, customerID, err := f.shouldSuppress(ctx, tenantID, sessionID, armedAt)
		if err != nil {
			log.Warn("fallback pre-emission check failed", zap.Error(err))
			return
		}
		if suppressed {
			metrics.FallbackSuppressedTotal.Inc()
			log.Info("fallback schedule suppressed", zap.Int("remaining", len(f.cfg.Delays)-i))
			return
		}

		if err := f.emit(ctx, tenantID, sessionID, customerID, i); err != nil {
			log.Warn("failed to emit fallback message", zap.Error(err))
			return
		}
		metrics.FallbackMessagesTotal.Inc()
	}
}

// shouldSuppress re-checks the session immediately before each emission: a
// human agent message since the trigger, an assigned agent, or a terminal
// status all abandon the remaining schedule.
func (f *FallbackScheduler) shouldSuppress(ctx context.Context, tenantID, sessionID string, armedAt time.Time) (bool, string, error) {
	session, err := f.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return true, "", err
	}
	if session.AgentID != nil || session.Status == model.SessionCompleted || session.Status == model.SessionTransferred {
		return true, session.CustomerID, nil
	}

	replied, err := f.messages.HasAgentMessageSince(ctx, tenantID, sessionID, armedAt)
	if err != nil {
		return true, session.CustomerID, err
	}
	return replied, session.CustomerID, nil
}

func (f *FallbackScheduler) emit(ctx context.Context, tenantID, sessionID, customerID string, step int) error {
	now := time.Now()
	msg := &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		TenantID:  tenantID,
		// Attributed to the customer for conversation continuity, but
		// authored by the system side.
		SenderID:    customerID,
		SenderRole:  model.RoleSystem,
		Content:     f.content(ctx, step),
		MessageType: model.MessageSystem,
		IsAIMessage: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Placeholder messages never touch the ledger.
	if err := f.messages.Create(ctx, msg); err != nil {
		return err
	}

	if err := f.notifier.Publish(ctx, tenantID, sessionID, model.EventMessageCreated, msg); err != nil {
		metrics.NotifyFailuresTotal.WithLabelValues(model.EventMessageCreated).Inc()
		f.logger.Warn("failed to publish fallback message", zap.Error(err))
	}
	return nil
}

// content returns the placeholder text for a step, generated by the LLM
// when one is configured, canned otherwise.
func (f *FallbackScheduler) content(ctx context.Context, step int) string {
	canned := f.cfg.Lines[step%len(f.cfg.Lines)]
	if f.llm == nil {
		return canned
	}

	genCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := f.llm.Complete(genCtx, &llm.CompletionRequest{
		Model: f.cfg.Model,
		Messages: []llm.ChatMessage{{
			Role: "user",
			Content: "Write one short, friendly holding message for a customer waiting " +
				"in a support chat queue. Reply with the message only.",
		}},
		MaxTokens: 128,
	})
	if err != nil || resp.Content == "" {
		return canned
	}
	return resp.Content
}
