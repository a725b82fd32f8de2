package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samrititabalt/supportchat/internal/model"
)

func TestLedgerCreditAdminOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledgerSvc.Credit(ctx, testTenant, customer, customer.ID, &model.CreditRequest{Amount: 10})
	require.ErrorIs(t, err, ErrUnauthorized)

	balance, err := env.ledgerSvc.Credit(ctx, testTenant, admin, customer.ID, &model.CreditRequest{Amount: 10, Reason: "goodwill"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	// An unqualified credit records an administrative adjustment with the
	// operator's id.
	records, err := env.ledgerSvc.Transactions(ctx, testTenant, admin, customer.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.TransactionAdminAdjustment, records[0].Type)
	require.NotNil(t, records[0].PerformedBy)
	assert.Equal(t, admin.ID, *records[0].PerformedBy)
}

func TestLedgerCreditExplicitTypeWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledgerSvc.Credit(ctx, testTenant, admin, customer.ID, &model.CreditRequest{
		Amount: 50,
		Type:   model.TransactionPurchase,
		Reason: "purchase on customer's behalf",
	})
	require.NoError(t, err)

	records, err := env.ledgerSvc.Transactions(ctx, testTenant, admin, customer.ID, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.TransactionPurchase, records[0].Type)
}

func TestLedgerDebitValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledgerSvc.Debit(ctx, testTenant, customer, customer.ID, &model.DebitRequest{Amount: 1})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.ledgerSvc.Debit(ctx, testTenant, admin, customer.ID, &model.DebitRequest{Amount: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.ledgerSvc.Credit(ctx, testTenant, admin, customer.ID, &model.CreditRequest{Amount: -5})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLedgerTransactionsSelfOrAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.ledgerSvc.Credit(ctx, testTenant, admin, customer.ID, &model.CreditRequest{Amount: 5})
	require.NoError(t, err)

	_, err = env.ledgerSvc.Transactions(ctx, testTenant, customer, customer.ID, 0)
	require.NoError(t, err)

	_, err = env.ledgerSvc.Transactions(ctx, testTenant, stranger, customer.ID, 0)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindUnauthorized, Classify(ErrUnauthorized))
	assert.Equal(t, KindValidation, Classify(ErrEmptyContent))
	assert.Equal(t, KindInternal, Classify(assert.AnError))
}
