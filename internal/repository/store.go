package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
)

var (
	ErrSettingNotFound     = errors.New("setting not found")
	ErrAccountNotFound     = errors.New("wallet account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRefundNotFound      = errors.New("refund request not found")
)

// Store is everything the services persist. Methods named Lock* must be
// called inside InTx; they hold the row until the transaction ends.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	GetSetting(ctx context.Context, key string) (string, error)
	LockSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)

	GetAccount(ctx context.Context, userID string) (*model.WalletAccount, error)
	LockAccount(ctx context.Context, userID string) (*model.WalletAccount, error)
	UpdateAccount(ctx context.Context, account *model.WalletAccount) error
	ListAccounts(ctx context.Context) ([]model.WalletAccount, error)

	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *model.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	FindPurchase(ctx context.Context, userID, orderID string) (*model.Transaction, error)

	CreateRefund(ctx context.Context, refund *model.RefundRequest) error
	GetRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)
	LockRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)
	UpdateRefund(ctx context.Context, refund *model.RefundRequest) error
	DeleteRefund(ctx context.Context, id uuid.UUID) error
	ListRefunds(ctx context.Context, filter model.RefundFilter) ([]model.RefundRequest, error)
	HasPendingRefund(ctx context.Context, userID, orderID string) (bool, error)

	CreateTicket(ctx context.Context, ticket *model.SupportTicket) error
	ListTickets(ctx context.Context, userID string) ([]model.SupportTicket, error)

	CreateAdminLog(ctx context.Context, log *model.AdminLog) error
	GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error)
}
