package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samrititabalt/supportchat/internal/model"
)

// LedgerStore owns the customer balance projection and the append-only
// transaction log. Debits never read-then-write: the decrement is a single
// conditional UPDATE so two concurrent sends cannot both spend the last
// unit.
type LedgerStore struct {
	db *gorm.DB
}

// NewLedgerStore creates a ledger store.
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// EnsureCustomer creates the customer row if it does not exist yet.
func (s *LedgerStore) EnsureCustomer(ctx context.Context, tenantID, customerID string) error {
	customer := model.Customer{ID: customerID, TenantID: tenantID}
	err := s.db.WithContext(ctx).
		Where("id = ?", customerID).
		FirstOrCreate(&customer).Error
	if err != nil {
		return fmt.Errorf("failed to ensure customer: %w", err)
	}
	return nil
}

// Balance returns the customer's current balance.
func (s *LedgerStore) Balance(ctx context.Context, tenantID, customerID string) (int64, error) {
	var customer model.Customer
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", customerID, tenantID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrCustomerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return customer.TokenBalance, nil
}

// Debit atomically decrements the balance and appends a deduct transaction.
// The decrement is conditional on `token_balance >= amount`; when it does
// not apply, nothing is written and ErrInsufficientBalance is returned.
func (s *LedgerStore) Debit(ctx context.Context, tenantID, customerID string, amount int64, reason string, messageID *string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	var newBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Customer{}).
			Where("id = ? AND tenant_id = ? AND token_balance >= ?", customerID, tenantID, amount).
			Update("token_balance", gorm.Expr("token_balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Customer{}).
				Where("id = ? AND tenant_id = ?", customerID, tenantID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrCustomerNotFound
			}
			return ErrInsufficientBalance
		}

		record := model.TokenTransaction{
			ID:         uuid.Must(uuid.NewV7()).String(),
			CustomerID: customerID,
			TenantID:   tenantID,
			Amount:     -amount,
			Type:       model.TransactionDeduct,
			Reason:     reason,
			MessageID:  messageID,
			CreatedAt:  time.Now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		var customer model.Customer
		if err := tx.Where("id = ?", customerID).First(&customer).Error; err != nil {
			return err
		}
		newBalance = customer.TokenBalance
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrInsufficientBalance) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to debit customer: %w", err)
	}
	return newBalance, nil
}

// Credit atomically increments the balance and appends a transaction of the
// given type.
func (s *LedgerStore) Credit(ctx context.Context, tenantID, customerID string, amount int64, txType model.TransactionType, reason string, performedBy, relatedTransaction *string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	var newBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Customer{}).
			Where("id = ? AND tenant_id = ?", customerID, tenantID).
			Update("token_balance", gorm.Expr("token_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCustomerNotFound
		}

		record := model.TokenTransaction{
			ID:                   uuid.Must(uuid.NewV7()).String(),
			CustomerID:           customerID,
			TenantID:             tenantID,
			Amount:               amount,
			Type:                 txType,
			Reason:               reason,
			PerformedBy:          performedBy,
			RelatedTransactionID: relatedTransaction,
			CreatedAt:            time.Now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		var customer model.Customer
		if err := tx.Where("id = ?", customerID).First(&customer).Error; err != nil {
			return err
		}
		newBalance = customer.TokenBalance
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to credit customer: %w", err)
	}
	return newBalance, nil
}

// Transactions returns the customer's ledger entries, newest first.
func (s *LedgerStore) Transactions(ctx context.Context, tenantID, customerID string, limit int) ([]model.TokenTransaction, error) {
	var records []model.TokenTransaction
	q := s.db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ?", customerID, tenantID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return records, nil
}

// TransactionSum folds the audit trail. It must always equal the cached
// balance projection.
func (s *LedgerStore) TransactionSum(ctx context.Context, tenantID, customerID string) (int64, error) {
	var sum *int64
	err := s.db.WithContext(ctx).Model(&model.TokenTransaction{}).
		Where("customer_id = ? AND tenant_id = ?", customerID, tenantID).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
