package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/samrititabalt/supportchat/internal/model"
	"github.com/samrititabalt/supportchat/internal/store"
	"github.com/samrititabalt/supportchat/pkg/logger"
	"github.com/samrititabalt/supportchat/pkg/metrics"
)

// LedgerService exposes the prepaid token ledger. Balance reads are
// advisory; only the atomic debit inside the store closes the
// check-then-use race.
type LedgerService struct {
	ledger *store.LedgerStore
	logger *logger.Logger
}

// NewLedgerService creates a ledger service.
func NewLedgerService(ledger *store.LedgerStore, log *logger.Logger) *LedgerService {
	return &LedgerService{ledger: ledger, logger: log}
}

// CheckBalance returns the customer's current balance.
func (s *LedgerService) CheckBalance(ctx context.Context, tenantID, customerID string) (int64, error) {
	return s.ledger.Balance(ctx, tenantID, customerID)
}

// Debit removes tokens from a customer's balance. Administrative use; the
// message path debits through the store directly.
func (s *LedgerService) Debit(ctx context.Context, tenantID string, actor model.Actor, customerID string, req *model.DebitRequest) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := s.ledger.Debit(ctx, tenantID, customerID, req.Amount, req.Reason, nil)
	if err != nil {
		return 0, err
	}

	metrics.TokenDebitsTotal.WithLabelValues(tenantID).Inc()
	s.logger.Info("tokens debited",
		zap.String("customer_id", customerID),
		zap.Int64("amount", req.Amount),
		zap.String("performed_by", actor.ID),
	)
	return balance, nil
}

// Credit adds tokens to a customer's balance. When an administrator
// initiates the change the transaction records admin_adjustment with the
// operator's id; otherwise the requested type (default add) is used.
func (s *LedgerService) Credit(ctx context.Context, tenantID string, actor model.Actor, customerID string, req *model.CreditRequest) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	// The operator id marks this as an administrative change; the explicit
	// type still wins so an admin can record a purchase on a customer's
	// behalf.
	performedBy := &actor.ID
	txType := req.Type
	if txType != model.TransactionAdd && txType != model.TransactionPurchase {
		txType = model.TransactionAdminAdjustment
	}

	if err := s.ledger.EnsureCustomer(ctx, tenantID, customerID); err != nil {
		return 0, err
	}

	balance, err := s.ledger.Credit(ctx, tenantID, customerID, req.Amount, txType, req.Reason, performedBy, nil)
	if err != nil {
		return 0, err
	}

	metrics.TokenCreditsTotal.WithLabelValues(tenantID, string(txType)).Inc()
	s.logger.Info("tokens credited",
		zap.String("customer_id", customerID),
		zap.Int64("amount", req.Amount),
		zap.String("type", string(txType)),
	)
	return balance, nil
}

// Transactions returns the customer's ledger audit trail.
func (s *LedgerService) Transactions(ctx context.Context, tenantID string, actor model.Actor, customerID string, limit int) ([]model.TokenTransaction, error) {
	if !actor.IsAdmin() && actor.ID != customerID {
		return nil, ErrUnauthorized
	}
	return s.ledger.Transactions(ctx, tenantID, customerID, limit)
}
