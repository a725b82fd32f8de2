package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samrititabalt/supportchat/internal/membership"
	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/notify"
	"github.com/samrititabalt/supportchat/internal/store"
	"github.com/samrititabalt/supportchat/pkg/logger"
)

const testTenant = "tenant-1"

var (
	customer = model.Actor{ID: "cust-1", Role: model.RoleCustomer}
	agent    = model.Actor{ID: "agent-1", Role: model.RoleAgent}
	agent2   = model.Actor{ID: "agent-2", Role: model.RoleAgent}
	admin    = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	stranger = model.Actor{ID: "cust-2", Role: model.RoleCustomer}
)

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Publish(ctx context.Context, tenantID, sessionID, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

type testEnv struct {
	sessions *store.SessionStore
	messages *store.MessageStore
	ledger   *store.LedgerStore
	fallback *FallbackScheduler
	notifier *recordingNotifier

	sessionSvc *SessionService
	messageSvc *MessageService
	ledgerSvc  *LedgerService
}

// newTestEnv wires the full service stack over an in-memory database. The
// fallback delays are long enough that no placeholder fires unless a test
// shortens them explicitly.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithFallback(t, FallbackConfig{
		Delays: []time.Duration{time.Hour},
	})
}

func newTestEnvWithFallback(t *testing.T, fcfg FallbackConfig) *testEnv {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	log := logger.NewNop()
	notifier := &recordingNotifier{}

	sessions := store.NewSessionStore(db)
	messages := store.NewMessageStore(db)
	ledger := store.NewLedgerStore(db)

	fallback := NewFallbackScheduler(sessions, messages, notifier, nil, fcfg, log)
	t.Cleanup(fallback.Shutdown)

	return &testEnv{
		sessions:   sessions,
		messages:   messages,
		ledger:     ledger,
		fallback:   fallback,
		notifier:   notifier,
		sessionSvc: NewSessionService(sessions, ledger, membership.Noop{}, notifier, fallback, log),
		messageSvc: NewMessageService(messages, sessions, ledger, notifier, fallback, log),
		ledgerSvc:  NewLedgerService(ledger, log),
	}
}

// openSession creates a session for the default customer and funds it.
func (e *testEnv) openSession(t *testing.T, balance int64) *model.ChatSession {
	t.Helper()
	ctx := context.Background()

	session, err := e.sessionSvc.Create(ctx, testTenant, customer, &model.CreateSessionRequest{Service: "billing"})
	require.NoError(t, err)

	if balance > 0 {
		_, err = e.ledger.Credit(ctx, testTenant, customer.ID, balance, model.TransactionPurchase, "test funding", nil, nil)
		require.NoError(t, err)
	}
	return session
}

var _ notify.Notifier = (*recordingNotifier)(nil)
