package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
)

const transactionColumns = `id, user_id, type, amount, fee, status, description, payment_method,
	deletable, order_id, refund_id, created_at, processed_at`

// GetAccount returns the cached balance row of a user
func (r *Repository) GetAccount(ctx context.Context, userID string) (*model.WalletAccount, error) {
	var account model.WalletAccount
	err := r.q.GetContext(ctx, &account, `
		SELECT user_id, balance, reserved, created_at, updated_at
		FROM wallet_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// LockAccount creates the account on first use and locks its row for the
// rest of the transaction.
func (r *Repository) LockAccount(ctx context.Context, userID string) (*model.WalletAccount, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wallet_accounts (user_id, balance, reserved, created_at, updated_at)
		VALUES ($1, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet account: %w", err)
	}

	var account model.WalletAccount
	err = r.q.GetContext(ctx, &account, `
		SELECT user_id, balance, reserved, created_at, updated_at
		FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet account: %w", err)
	}
	return &account, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, account *model.WalletAccount) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE wallet_accounts SET balance = $1, reserved = $2, updated_at = $3
		WHERE user_id = $4`,
		account.Balance, account.Reserved, account.UpdatedAt, account.UserID)
	return err
}

func (r *Repository) ListAccounts(ctx context.Context) ([]model.WalletAccount, error) {
	var accounts []model.WalletAccount
	err := r.q.SelectContext(ctx, &accounts, `
		SELECT user_id, balance, reserved, created_at, updated_at
		FROM wallet_accounts ORDER BY user_id`)
	return accounts, err
}

func (r *Repository) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wallet_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Fee, tx.Status, tx.Description, tx.PaymentMethod,
		tx.Deletable, tx.OrderID, tx.RefundID, tx.CreatedAt, tx.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction record: %w", err)
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.q.GetContext(ctx, &tx, `SELECT `+transactionColumns+` FROM wallet_transactions WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

// UpdateTransaction writes the mutable part of a transaction: its status,
// whether it can still be deleted, and when it was processed.
func (r *Repository) UpdateTransaction(ctx context.Context, tx *model.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE wallet_transactions SET status = $1, deletable = $2, processed_at = $3
		WHERE id = $4`,
		tx.Status, tx.Deletable, tx.ProcessedAt, tx.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM wallet_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// ListTransactions returns transaction history, newest first
func (r *Repository) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	transactions := []model.Transaction{}
	err := r.q.SelectContext(ctx, &transactions, query, args...)
	return transactions, err
}

// FindPurchase returns the completed purchase that paid for an order
func (r *Repository) FindPurchase(ctx context.Context, userID, orderID string) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.q.GetContext(ctx, &tx, `
		SELECT `+transactionColumns+` FROM wallet_transactions
		WHERE user_id = $1 AND order_id = $2 AND type = $3 AND status = $4
		ORDER BY created_at DESC LIMIT 1`,
		userID, orderID, model.TransactionTypePurchase, model.TransactionStatusCompleted)
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}
