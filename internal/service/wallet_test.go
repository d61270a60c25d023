package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
)

func TestGetWalletUnknownUser(t *testing.T) {
	ts := newTestServices(t)

	w, err := ts.wallet.GetWallet(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.True(t, w.Available.IsZero())
	assert.Empty(t, w.Transactions)
	assert.Equal(t, "EUR", w.Currency)
}

func TestDepositStatusFollowsSettings(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	bank := model.PaymentMethodBankTransfer
	tx, err := ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec("40"), PaymentMethod: &bank, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.True(t, tx.Deletable)
	assert.True(t, ts.balance(t, "u1").IsZero())

	card := model.PaymentMethodCard
	tx, err = ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec("10.50"), PaymentMethod: &card, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, tx.Status)
	assert.False(t, tx.Deletable)
	assert.True(t, ts.balance(t, "u1").Equal(dec("10.5")))

	_, err = ts.settings.UpdateDeep(ctx, model.SettingsWallet, model.Document{
		"depositSettings": map[string]interface{}{"cardDepositInstant": false},
	})
	require.NoError(t, err)
	tx, err = ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec("5"), PaymentMethod: &card, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)

	ts.requireConsistent(t, "u1")
}

func TestUnconfirmedDepositStaysPending(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	card := model.PaymentMethodCard
	paypal := model.PaymentMethodPayPal
	for _, method := range []*model.PaymentMethod{&card, &paypal, nil} {
		tx, err := ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec("1000"), PaymentMethod: method})
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPending, tx.Status)
		assert.True(t, tx.Deletable)
	}
	assert.True(t, ts.balance(t, "u1").IsZero())
	ts.requireConsistent(t, "u1")
}

func TestDepositRejectsInvalidAmounts(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "10.001"} {
		_, err := ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec(amount)})
		assert.ErrorIs(t, err, ErrInvalidAmount, amount)
	}

	failed := model.TransactionStatusFailed
	_, err := ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec("5"), Status: &failed})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRequestFunds(t *testing.T) {
	ts := newTestServices(t)

	tx, err := ts.wallet.RequestFunds(context.Background(), "u1", dec("25"), "project budget")
	require.NoError(t, err)
	assert.Equal(t, "Fund Request: project budget", tx.Description)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.True(t, ts.balance(t, "u1").IsZero())
}

func TestWithdrawalFeeBoundary(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	_, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("96"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Required().Equal(dec("101")))
	assert.True(t, insufficient.Fee.Equal(dec("5")))
	assert.True(t, insufficient.Available.Equal(dec("100")))

	tx, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("95"))
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.False(t, tx.Deletable)
	assert.True(t, tx.Fee.Equal(dec("5")))

	w, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("100")))
	assert.True(t, w.Reserved.Equal(dec("100")))
	assert.True(t, w.Available.IsZero())

	// the reservation blocks further spending
	_, err = ts.wallet.Purchase(ctx, "u1", "ord-1", dec("1"), "template")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	ts.requireConsistent(t, "u1")
}

func TestWithdrawalConcurrent(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	// each request reserves 45 plus the fee of 5, so only two fit
	const workers = 20
	var (
		wg           sync.WaitGroup
		accepted     atomic.Int32
		insufficient atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("45"))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrInsufficientBalance):
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), accepted.Load())
	assert.Equal(t, int32(workers-2), insufficient.Load())

	w, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("100")))
	assert.True(t, w.Reserved.Equal(dec("100")))
	assert.True(t, w.Available.IsZero())
	ts.requireConsistent(t, "u1")
}

func TestWithdrawalLimits(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "20000")

	_, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("9.99"))
	assert.ErrorIs(t, err, ErrWithdrawalLimit)
	_, err = ts.wallet.RequestWithdrawal(ctx, "u1", dec("10000.01"))
	assert.ErrorIs(t, err, ErrWithdrawalLimit)
	_, err = ts.wallet.RequestWithdrawal(ctx, "u1", dec("10000"))
	assert.NoError(t, err)
}

func TestWithdrawalSettlement(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	first, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("40"))
	require.NoError(t, err)
	second, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("20"))
	require.NoError(t, err)

	_, err = ts.wallet.UpdateTransactionStatus(ctx, "", first.ID, model.TransactionStatusCompleted, "admin")
	require.NoError(t, err)
	_, err = ts.wallet.UpdateTransactionStatus(ctx, "", second.ID, model.TransactionStatusFailed, "admin")
	require.NoError(t, err)

	w, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("55")))
	assert.True(t, w.Reserved.IsZero())
	ts.requireConsistent(t, "u1")

	_, err = ts.wallet.UpdateTransactionStatus(ctx, "", first.ID, model.TransactionStatusFailed, "admin")
	assert.ErrorIs(t, err, ErrTransactionNotPending)

	logs, err := ts.admin.GetLogs(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, model.AdminActionUpdateTransaction, logs[0].Action)
}

func TestUpdateTransactionStatusChecks(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.wallet.UpdateTransactionStatus(ctx, "", uuid.New(), model.TransactionStatusPending, "admin")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ts.wallet.UpdateTransactionStatus(ctx, "", uuid.New(), model.TransactionStatusCompleted, "admin")
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)

	tx, err := ts.wallet.RequestFunds(ctx, "u1", dec("10"), "x")
	require.NoError(t, err)
	_, err = ts.wallet.UpdateTransactionStatus(ctx, "u2", tx.ID, model.TransactionStatusCompleted, "admin")
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)

	settled, err := ts.wallet.UpdateTransactionStatus(ctx, "u1", tx.ID, model.TransactionStatusCompleted, "admin")
	require.NoError(t, err)
	assert.False(t, settled.Deletable)
	assert.NotNil(t, settled.ProcessedAt)
	assert.True(t, ts.balance(t, "u1").Equal(dec("10")))
}

func TestDeleteTransactionRestrictions(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	w, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	completed := w.Transactions[0]

	err = ts.wallet.DeleteTransaction(ctx, "u1", completed.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	withdrawal, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("10"))
	require.NoError(t, err)
	err = ts.wallet.DeleteTransaction(ctx, "u1", withdrawal.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	err = ts.wallet.DeleteTransaction(ctx, "u1", uuid.New())
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)

	pending, err := ts.wallet.RequestFunds(ctx, "u1", dec("30"), "x")
	require.NoError(t, err)
	err = ts.wallet.DeleteTransaction(ctx, "u2", pending.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	after, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(dec("100")))
	assert.Len(t, after.Transactions, 3)

	require.NoError(t, ts.wallet.DeleteTransaction(ctx, "u1", pending.ID))
	after, err = ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, after.Transactions, 2)
	assert.True(t, after.Balance.Equal(dec("100")))
	ts.requireConsistent(t, "u1")
}

func TestBalanceInvariantOverSequence(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	ts.fund(t, "u1", "250")
	bank := model.PaymentMethodBankTransfer
	pending, err := ts.wallet.Deposit(ctx, DepositInput{UserID: "u1", Amount: dec("80"), PaymentMethod: &bank})
	require.NoError(t, err)
	_, err = ts.wallet.Purchase(ctx, "u1", "ord-1", dec("99.99"), "template")
	require.NoError(t, err)
	w1, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("50"))
	require.NoError(t, err)
	_, err = ts.wallet.CreditRefund(ctx, "u1", dec("12.34"), "goodwill")
	require.NoError(t, err)
	_, err = ts.wallet.UpdateTransactionStatus(ctx, "", pending.ID, model.TransactionStatusCompleted, "admin")
	require.NoError(t, err)
	_, err = ts.wallet.UpdateTransactionStatus(ctx, "", w1.ID, model.TransactionStatusCompleted, "admin")
	require.NoError(t, err)
	cancelled, err := ts.wallet.RequestFunds(ctx, "u1", dec("15"), "x")
	require.NoError(t, err)
	require.NoError(t, ts.wallet.DeleteTransaction(ctx, "u1", cancelled.ID))

	ts.requireConsistent(t, "u1")

	w, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	// 250 + 80 - 99.99 - 55 + 12.34
	assert.Equal(t, "187.35", w.Balance.StringFixed(2))
	assert.True(t, model.ComputeBalance(w.Transactions).Equal(w.Balance))
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "10")

	_, err := ts.wallet.Purchase(ctx, "u1", "ord-1", dec("10.01"), "template")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	tx, err := ts.wallet.Purchase(ctx, "u1", "ord-1", dec("10"), "template")
	require.NoError(t, err)
	require.NotNil(t, tx.OrderID)
	assert.Equal(t, "ord-1", *tx.OrderID)
	assert.True(t, ts.balance(t, "u1").IsZero())
}

func TestReconcileRepairsDrift(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	// corrupt the cached balance behind the service's back
	account, err := ts.store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	account.Balance = dec("1000")
	require.NoError(t, ts.store.UpdateAccount(ctx, account))

	result, err := ts.wallet.Reconcile(ctx, "u1", false)
	require.NoError(t, err)
	assert.True(t, result.Drift)
	assert.False(t, result.Repaired)
	assert.True(t, result.ComputedBalance.Equal(dec("100")))

	result, err = ts.wallet.Reconcile(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, result.Repaired)
	assert.True(t, ts.balance(t, "u1").Equal(dec("100")))
}

func TestReconcileCheckLocksAccount(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	ts.store.FailOn("LockAccount", errors.New("lock timeout"))
	_, err := ts.wallet.Reconcile(ctx, "u1", false)
	require.Error(t, err)
	ts.store.FailOn("LockAccount", nil)

	result, err := ts.wallet.Reconcile(ctx, "u1", false)
	require.NoError(t, err)
	assert.False(t, result.Drift)
}

func TestWalletRollsBackOnStorageFailure(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "100")

	ts.store.FailOn("UpdateAccount", errors.New("write failed"))
	_, err := ts.wallet.RequestWithdrawal(ctx, "u1", dec("50"))
	require.Error(t, err)
	ts.store.FailOn("UpdateAccount", nil)

	w, err := ts.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, w.Transactions, 1)
	assert.True(t, w.Reserved.IsZero())
}

func TestReconcileWorkerRunOnce(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.fund(t, "u1", "10")
	ts.fund(t, "u2", "20")

	account, err := ts.store.GetAccount(ctx, "u2")
	require.NoError(t, err)
	account.Reserved = dec("3")
	require.NoError(t, ts.store.UpdateAccount(ctx, account))

	worker := NewReconcileWorker(ts.wallet, zapNop(), 0, true)
	assert.Equal(t, 1, worker.RunOnce(ctx))
	assert.Equal(t, 0, worker.RunOnce(ctx))
}
