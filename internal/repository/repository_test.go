package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/model"
)

// openTestRepository connects to TEST_DATABASE_URL and applies the schema.
func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	repo, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	schema, err := os.ReadFile("../../migrations/000001_init.up.sql")
	require.NoError(t, err)
	_, err = repo.DB().Exec(string(schema))
	require.NoError(t, err)
	_, err = repo.DB().Exec(`TRUNCATE admin_logs, support_tickets, refund_requests, wallet_transactions, wallet_accounts, settings`)
	require.NoError(t, err)
	return repo
}

func TestSettingsUpsert(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetSetting(ctx, "general")
	require.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, repo.SetSetting(ctx, "general", `{"siteName":"A"}`))
	require.NoError(t, repo.SetSetting(ctx, "general", `{"siteName":"B"}`))

	v, err := repo.GetSetting(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, `{"siteName":"B"}`, v)

	all, err := repo.GetAllSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAccountAndTransactions(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	orderID := "ord-1"

	err := repo.InTx(ctx, func(s Store) error {
		account, err := s.LockAccount(ctx, "u1")
		if err != nil {
			return err
		}
		account.Balance = decimal.NewFromInt(40)
		account.UpdatedAt = time.Now()
		if err := s.UpdateAccount(ctx, account); err != nil {
			return err
		}
		return s.CreateTransaction(ctx, &model.Transaction{
			ID:        uuid.New(),
			UserID:    "u1",
			Type:      model.TransactionTypePurchase,
			Amount:    decimal.RequireFromString("10.50"),
			Status:    model.TransactionStatusCompleted,
			OrderID:   &orderID,
			CreatedAt: time.Now(),
		})
	})
	require.NoError(t, err)

	account, err := repo.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(40)))

	purchase, err := repo.FindPurchase(ctx, "u1", orderID)
	require.NoError(t, err)
	assert.True(t, purchase.Amount.Equal(decimal.RequireFromString("10.5")))

	_, err = repo.FindPurchase(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	txs, err := repo.ListTransactions(ctx, model.TransactionFilter{UserID: "u1", Type: model.TransactionTypePurchase})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRefundLifecycle(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	refund := &model.RefundRequest{
		ID:          uuid.New(),
		UserID:      "u1",
		OrderID:     "ord-9",
		Amount:      decimal.NewFromInt(50),
		Reason:      "broken",
		Status:      model.RefundStatusPending,
		RequestDate: time.Now(),
	}
	require.NoError(t, repo.CreateRefund(ctx, refund))

	pending, err := repo.HasPendingRefund(ctx, "u1", "ord-9")
	require.NoError(t, err)
	assert.True(t, pending)

	now := time.Now()
	admin := "admin"
	refund.Status = model.RefundStatusApproved
	refund.ProcessedDate = &now
	refund.ProcessedBy = &admin
	require.NoError(t, repo.UpdateRefund(ctx, refund))

	got, err := repo.GetRefund(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusApproved, got.Status)
	require.NotNil(t, got.ProcessedBy)
	assert.Equal(t, "admin", *got.ProcessedBy)

	list, err := repo.ListRefunds(ctx, model.RefundFilter{Status: model.RefundStatusPending})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.ListRefunds(ctx, model.RefundFilter{UserID: "u1", OrderID: "ord-9"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = repo.ListRefunds(ctx, model.RefundFilter{UserID: "u1", OrderID: "ord-10"})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.DeleteRefund(ctx, uuid.New()), ErrRefundNotFound)
}
