package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/webagency/backend/internal/events"
	"github.com/webagency/backend/internal/metrics"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 200
)

type WalletService struct {
	repo      repository.Store
	settings  *SettingsService
	adminSvc  *AdminService
	publisher events.Publisher
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewWalletService(repo repository.Store, settings *SettingsService, logger *zap.Logger) *WalletService {
	return &WalletService{
		repo:     repo,
		settings: settings,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetAdminService sets the audit log used for admin decisions
func (s *WalletService) SetAdminService(adminSvc *AdminService) {
	s.adminSvc = adminSvc
}

// SetPublisher sets where ledger events go
func (s *WalletService) SetPublisher(publisher events.Publisher) {
	s.publisher = publisher
}

// SetNotifier sets where withdrawal requests are announced
func (s *WalletService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// GetWallet returns the account view of a user. Unknown users get an empty wallet.
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		account = &model.WalletAccount{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	transactions, err := s.repo.ListTransactions(ctx, model.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	return &model.Wallet{
		UserID:       userID,
		Balance:      account.Balance,
		Reserved:     account.Reserved,
		Available:    account.Available(),
		Currency:     s.settings.Wallet(ctx).Currency,
		Transactions: transactions,
	}, nil
}

type DepositInput struct {
	UserID        string
	Amount        decimal.Decimal
	Description   string
	PaymentMethod *model.PaymentMethod
	// Confirmed marks a deposit entered by an admin or the payment provider.
	// Unconfirmed deposits always start pending, whatever the method.
	Confirmed bool
	// Status forces the initial status. Left nil it follows the deposit settings.
	Status *model.TransactionStatus
}

// Deposit records a deposit. Completed deposits credit the balance at once,
// pending ones wait for UpdateTransactionStatus and can be cancelled by the user.
func (s *WalletService) Deposit(ctx context.Context, in DepositInput) (tx *model.Transaction, err error) {
	defer func() { metrics.WalletOperations.WithLabelValues("deposit", metrics.Outcome(err)).Inc() }()

	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}

	status := model.TransactionStatusPending
	if in.Confirmed {
		status = s.depositStatus(ctx, in.PaymentMethod)
	}
	if in.Status != nil {
		status = *in.Status
	}
	if status != model.TransactionStatusPending && status != model.TransactionStatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	tx = &model.Transaction{
		ID:            uuid.New(),
		UserID:        in.UserID,
		Type:          model.TransactionTypeDeposit,
		Amount:        in.Amount,
		Fee:           decimal.Zero,
		Status:        status,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		Deletable:     status == model.TransactionStatusPending,
		CreatedAt:     s.now(),
	}
	if status == model.TransactionStatusCompleted {
		processed := tx.CreatedAt
		tx.ProcessedAt = &processed
	}

	err = s.repo.InTx(ctx, func(store repository.Store) error {
		account, err := store.LockAccount(ctx, in.UserID)
		if err != nil {
			return err
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if status != model.TransactionStatusCompleted {
			return nil
		}
		account.Balance = account.Balance.Add(tx.Amount)
		account.UpdatedAt = tx.CreatedAt
		return store.UpdateAccount(ctx, account)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	s.publish(ctx, events.TransactionCreated, tx)
	return tx, nil
}

// depositStatus applies the deposit settings to a payment method.
func (s *WalletService) depositStatus(ctx context.Context, method *model.PaymentMethod) model.TransactionStatus {
	if method == nil {
		return model.TransactionStatusCompleted
	}
	deposit := s.settings.Wallet(ctx).DepositSettings
	instant := true
	switch *method {
	case model.PaymentMethodBankTransfer:
		instant = !deposit.BankTransferRequiresApproval
	case model.PaymentMethodCard:
		instant = deposit.CardDepositInstant
	case model.PaymentMethodPayPal:
		instant = deposit.PayPalDepositInstant
	}
	if instant {
		return model.TransactionStatusCompleted
	}
	return model.TransactionStatusPending
}

// RequestFunds records a pending deposit awaiting admin approval.
func (s *WalletService) RequestFunds(ctx context.Context, userID string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	pending := model.TransactionStatusPending
	return s.Deposit(ctx, DepositInput{
		UserID:      userID,
		Amount:      amount,
		Description: "Fund Request: " + description,
		Status:      &pending,
	})
}

// RequestWithdrawal creates a pending withdrawal and reserves amount plus the
// service fee. The balance itself moves only when the withdrawal completes.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (tx *model.Transaction, err error) {
	defer func() { metrics.WalletOperations.WithLabelValues("withdraw", metrics.Outcome(err)).Inc() }()

	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	settings := s.settings.Wallet(ctx)
	limits := settings.WithdrawalSettings
	if amount.LessThan(limits.MinWithdrawal) || (limits.MaxWithdrawal.IsPositive() && amount.GreaterThan(limits.MaxWithdrawal)) {
		return nil, &WithdrawalLimitError{Min: limits.MinWithdrawal, Max: limits.MaxWithdrawal}
	}

	fee := settings.ServiceFee
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	tx = &model.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        model.TransactionTypeWithdrawal,
		Amount:      amount,
		Fee:         fee,
		Status:      model.TransactionStatusPending,
		Description: fmt.Sprintf("Withdrawal request (%s)", limits.ProcessingTime),
		Deletable:   false,
		CreatedAt:   s.now(),
	}

	err = s.repo.InTx(ctx, func(store repository.Store) error {
		account, err := store.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		if tx.Total().GreaterThan(account.Available()) {
			return &InsufficientBalanceError{Requested: amount, Fee: fee, Available: account.Available()}
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		account.Reserved = account.Reserved.Add(tx.Total())
		account.UpdatedAt = tx.CreatedAt
		return store.UpdateAccount(ctx, account)
	})
	if err != nil {
		var insufficient *InsufficientBalanceError
		if errors.As(err, &insufficient) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to request withdrawal: %w", err)
	}

	s.publish(ctx, events.TransactionCreated, tx)
	if s.notifier != nil {
		if err := s.notifier.SendWithdrawalRequested(tx); err != nil {
			s.logger.Warn("failed to announce withdrawal", zap.String("transactionId", tx.ID.String()), zap.Error(err))
		}
	}
	return tx, nil
}

// Purchase debits an order from the available balance.
func (s *WalletService) Purchase(ctx context.Context, userID, orderID string, amount decimal.Decimal, description string) (tx *model.Transaction, err error) {
	defer func() { metrics.WalletOperations.WithLabelValues("purchase", metrics.Outcome(err)).Inc() }()

	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	method := model.PaymentMethodWallet
	now := s.now()
	tx = &model.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          model.TransactionTypePurchase,
		Amount:        amount,
		Fee:           decimal.Zero,
		Status:        model.TransactionStatusCompleted,
		Description:   description,
		PaymentMethod: &method,
		OrderID:       &orderID,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}

	err = s.repo.InTx(ctx, func(store repository.Store) error {
		account, err := store.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(account.Available()) {
			return &InsufficientBalanceError{Requested: amount, Fee: decimal.Zero, Available: account.Available()}
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		account.Balance = account.Balance.Sub(amount)
		account.UpdatedAt = now
		return store.UpdateAccount(ctx, account)
	})
	if err != nil {
		var insufficient *InsufficientBalanceError
		if errors.As(err, &insufficient) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	s.publish(ctx, events.TransactionCreated, tx)
	return tx, nil
}

// DeleteTransaction removes a cancellable pending deposit of the user.
func (s *WalletService) DeleteTransaction(ctx context.Context, userID string, transactionID uuid.UUID) (err error) {
	defer func() { metrics.WalletOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc() }()

	return s.repo.InTx(ctx, func(store repository.Store) error {
		if _, err := store.LockAccount(ctx, userID); err != nil {
			return err
		}
		tx, err := store.GetTransaction(ctx, transactionID)
		if errors.Is(err, repository.ErrTransactionNotFound) || (err == nil && tx.UserID != userID) {
			return fmt.Errorf("%w: %w", ErrNotCancellable, repository.ErrTransactionNotFound)
		}
		if err != nil {
			return err
		}
		if !tx.Cancellable() {
			return ErrNotCancellable
		}
		return store.DeleteTransaction(ctx, transactionID)
	})
}

// UpdateTransactionStatus settles a pending transaction. An empty userID
// skips the ownership check; actor is recorded in the admin log.
func (s *WalletService) UpdateTransactionStatus(ctx context.Context, userID string, transactionID uuid.UUID,
	status model.TransactionStatus, actor string) (tx *model.Transaction, err error) {
	defer func() { metrics.WalletOperations.WithLabelValues("settle", metrics.Outcome(err)).Inc() }()

	if status != model.TransactionStatusCompleted && status != model.TransactionStatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	err = s.repo.InTx(ctx, func(store repository.Store) error {
		found, err := store.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if userID != "" && found.UserID != userID {
			return repository.ErrTransactionNotFound
		}

		account, err := store.LockAccount(ctx, found.UserID)
		if err != nil {
			return err
		}
		// re-read under the account lock
		tx, err = store.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Status != model.TransactionStatusPending {
			return ErrTransactionNotPending
		}

		now := s.now()
		if tx.Type == model.TransactionTypeWithdrawal {
			account.Reserved = account.Reserved.Sub(tx.Total())
			if account.Reserved.IsNegative() {
				account.Reserved = decimal.Zero
			}
		}
		if status == model.TransactionStatusCompleted {
			account.Balance = account.Balance.Add(tx.Effect())
		}
		account.UpdatedAt = now

		tx.Status = status
		tx.Deletable = false
		tx.ProcessedAt = &now
		if err := store.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
		if err := store.UpdateAccount(ctx, account); err != nil {
			return err
		}

		if s.adminSvc == nil {
			return nil
		}
		return s.adminSvc.LogAction(ctx, store, actor, model.AdminActionUpdateTransaction, &tx.UserID, map[string]interface{}{
			"transactionId": tx.ID,
			"status":        status,
		})
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotPending) || errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	s.publish(ctx, events.TransactionStatusChanged, tx)
	return tx, nil
}

// CreditRefund appends a completed refund credit in its own transaction.
func (s *WalletService) CreditRefund(ctx context.Context, userID string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	var tx *model.Transaction
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		var err error
		tx, err = s.ApplyRefundCredit(ctx, store, userID, amount, description, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TransactionCreated, tx)
	return tx, nil
}

// ApplyRefundCredit writes a refund credit through store, which must be bound
// to the caller's transaction.
func (s *WalletService) ApplyRefundCredit(ctx context.Context, store repository.Store, userID string,
	amount decimal.Decimal, description string, refundID *uuid.UUID) (tx *model.Transaction, err error) {
	defer func() { metrics.WalletOperations.WithLabelValues("refund_credit", metrics.Outcome(err)).Inc() }()

	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	account, err := store.LockAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	method := model.PaymentMethodWallet
	tx = &model.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          model.TransactionTypeRefund,
		Amount:        amount,
		Fee:           decimal.Zero,
		Status:        model.TransactionStatusCompleted,
		Description:   description,
		PaymentMethod: &method,
		RefundID:      refundID,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
	if err := store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to credit refund: %w", err)
	}

	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = now
	if err := store.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to credit refund: %w", err)
	}
	return tx, nil
}

// Reconcile recomputes balance and reserved from the transaction log. With
// repair set the cached account values are overwritten when they drift.
// The account row stays locked while the log is read, in both modes.
func (s *WalletService) Reconcile(ctx context.Context, userID string, repair bool) (*model.Reconciliation, error) {
	var result *model.Reconciliation
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		account, err := store.LockAccount(ctx, userID)
		if err != nil {
			return err
		}

		transactions, err := store.ListTransactions(ctx, model.TransactionFilter{UserID: userID})
		if err != nil {
			return err
		}

		result = &model.Reconciliation{
			UserID:           userID,
			CachedBalance:    account.Balance,
			ComputedBalance:  model.ComputeBalance(transactions),
			CachedReserved:   account.Reserved,
			ComputedReserved: model.ComputeReserved(transactions),
		}
		result.Drift = !result.CachedBalance.Equal(result.ComputedBalance) ||
			!result.CachedReserved.Equal(result.ComputedReserved)

		if !result.Drift || !repair {
			return nil
		}
		account.Balance = result.ComputedBalance
		account.Reserved = result.ComputedReserved
		account.UpdatedAt = s.now()
		if err := store.UpdateAccount(ctx, account); err != nil {
			return err
		}
		result.Repaired = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile wallet: %w", err)
	}

	if result.Drift {
		metrics.LedgerDrift.Inc()
		s.logger.Warn("ledger drift detected",
			zap.String("userId", userID),
			zap.String("cachedBalance", result.CachedBalance.StringFixed(2)),
			zap.String("computedBalance", result.ComputedBalance.StringFixed(2)),
			zap.String("cachedReserved", result.CachedReserved.StringFixed(2)),
			zap.String("computedReserved", result.ComputedReserved.StringFixed(2)),
			zap.Bool("repaired", result.Repaired),
		)
	}
	return result, nil
}

// ListTransactions is the admin view of the ledger.
func (s *WalletService) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultTransactionLimit
	}
	if filter.Limit > maxTransactionLimit {
		filter.Limit = maxTransactionLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListTransactions(ctx, filter)
}

func (s *WalletService) AccountIDs(ctx context.Context) ([]string, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}

func (s *WalletService) publish(ctx context.Context, eventType string, tx *model.Transaction) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		Key:        tx.UserID,
		OccurredAt: s.now(),
		Payload:    tx,
	})
	if err != nil {
		s.logger.Warn("failed to publish wallet event", zap.String("type", eventType), zap.Error(err))
	}
}
