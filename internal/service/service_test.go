package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository/memstore"
	"go.uber.org/zap"
)

type testServices struct {
	store    *memstore.Store
	settings *SettingsService
	wallet   *WalletService
	tickets  *TicketService
	refunds  *RefundService
	admin    *AdminService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()

	settings := NewSettingsService(store, logger)
	admin := NewAdminService(store, logger)
	wallet := NewWalletService(store, settings, logger)
	wallet.SetAdminService(admin)
	tickets := NewTicketService(store)
	refunds := NewRefundService(store, wallet, tickets, logger)
	refunds.SetAdminService(admin)

	return &testServices{
		store:    store,
		settings: settings,
		wallet:   wallet,
		tickets:  tickets,
		refunds:  refunds,
		admin:    admin,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fund credits the user with a completed card deposit.
func (ts *testServices) fund(t *testing.T, userID, amount string) {
	t.Helper()
	card := model.PaymentMethodCard
	tx, err := ts.wallet.Deposit(context.Background(), DepositInput{
		UserID:        userID,
		Amount:        dec(amount),
		Description:   "top up",
		PaymentMethod: &card,
		Confirmed:     true,
	})
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusCompleted, tx.Status)
}

func (ts *testServices) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := ts.wallet.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

// requireConsistent checks the cached account against the transaction log.
func (ts *testServices) requireConsistent(t *testing.T, userID string) {
	t.Helper()
	result, err := ts.wallet.Reconcile(context.Background(), userID, false)
	require.NoError(t, err)
	require.False(t, result.Drift, "cached %s/%s, log %s/%s",
		result.CachedBalance, result.CachedReserved, result.ComputedBalance, result.ComputedReserved)
}

func zapNop() *zap.Logger { return zap.NewNop() }
