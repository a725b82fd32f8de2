package model

import (
	"time"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionDeduct          TransactionType = "deduct"
	TransactionAdd             TransactionType = "add"
	TransactionPurchase        TransactionType = "purchase"
	TransactionAdminAdjustment TransactionType = "admin_adjustment"
)

// Customer carries the cached balance projection. The token_transactions
// table is the audit trail; the sum of a customer's transactions always
// equals TokenBalance.
type Customer struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	TenantID     string    `gorm:"index" json:"tenant_id"`
	TokenBalance int64     `gorm:"not null;default:0" json:"token_balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName sets the gorm table name.
func (Customer) TableName() string { return "customers" }

// TokenTransaction is one immutable ledger entry. Entries are append-only
// and never edited or deleted.
type TokenTransaction struct {
	ID         string `gorm:"primaryKey" json:"id"`
	CustomerID string `gorm:"index;not null" json:"customer_id"`
	TenantID   string `gorm:"index" json:"tenant_id"`

	// Amount is signed: negative for deductions, positive for credits.
	Amount int64           `gorm:"not null" json:"amount"`
	Type   TransactionType `gorm:"not null" json:"type"`
	Reason string          `json:"reason"`

	MessageID            *string `json:"message_id,omitempty"`
	RelatedTransactionID *string `json:"related_transaction_id,omitempty"`

	// PerformedBy is set when an administrator initiated the change.
	PerformedBy *string `json:"performed_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the gorm table name.
func (TokenTransaction) TableName() string { return "token_transactions" }

// CreditRequest is the admin request to add tokens to a customer's balance.
type CreditRequest struct {
	Amount int64           `json:"amount"`
	Type   TransactionType `json:"type,omitempty"`
	Reason string          `json:"reason"`
}

// DebitRequest is the admin request to deduct tokens from a customer.
type DebitRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// BalanceResponse reports a customer's current balance.
type BalanceResponse struct {
	CustomerID string `json:"customer_id"`
	Balance    int64  `json:"balance"`
}

// ListTransactionsResponse is the ledger audit-trail response.
type ListTransactionsResponse struct {
	Transactions []TokenTransaction `json:"transactions"`
	Total        int                `json:"total"`
}
