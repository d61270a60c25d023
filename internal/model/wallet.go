package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeRefund     TransactionType = "refund"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypePurchase, TransactionTypeRefund:
		return true
	}
	return false
}

// IsCredit reports whether a completed transaction of this type increases the balance.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeRefund
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMollie       PaymentMethod = "mollie"
	PaymentMethodWallet       PaymentMethod = "wallet"
)

type WalletAccount struct {
	UserID    string          `json:"userId" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Reserved  decimal.Decimal `json:"reserved" db:"reserved"` // pending withdrawals incl. fee
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Available is the part of the balance not held by pending withdrawals.
func (a *WalletAccount) Available() decimal.Decimal {
	return a.Balance.Sub(a.Reserved)
}

type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	UserID        string            `json:"userId" db:"user_id"`
	Type          TransactionType   `json:"type" db:"type"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Fee           decimal.Decimal   `json:"fee" db:"fee"`
	Status        TransactionStatus `json:"status" db:"status"`
	Description   string            `json:"description" db:"description"`
	PaymentMethod *PaymentMethod    `json:"paymentMethod,omitempty" db:"payment_method"`
	Deletable     bool              `json:"deletable" db:"deletable"`
	OrderID       *string           `json:"orderId,omitempty" db:"order_id"`
	RefundID      *uuid.UUID        `json:"refundId,omitempty" db:"refund_id"`
	CreatedAt     time.Time         `json:"date" db:"created_at"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty" db:"processed_at"`
}

// Total is what the transaction moves in or out of the wallet, fee included.
func (t *Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// Effect is the signed change a completed transaction applies to the balance.
func (t *Transaction) Effect() decimal.Decimal {
	if t.Type.IsCredit() {
		return t.Amount
	}
	return t.Total().Neg()
}

// Cancellable reports whether the owner may still delete the transaction.
func (t *Transaction) Cancellable() bool {
	return t.Status == TransactionStatusPending && t.Deletable
}

// ComputeBalance folds the completed transactions of a log into a balance.
func ComputeBalance(transactions []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for i := range transactions {
		if transactions[i].Status != TransactionStatusCompleted {
			continue
		}
		balance = balance.Add(transactions[i].Effect())
	}
	return balance
}

// ComputeReserved sums what pending withdrawals hold back.
func ComputeReserved(transactions []Transaction) decimal.Decimal {
	reserved := decimal.Zero
	for i := range transactions {
		t := &transactions[i]
		if t.Type == TransactionTypeWithdrawal && t.Status == TransactionStatusPending {
			reserved = reserved.Add(t.Total())
		}
	}
	return reserved
}

type TransactionFilter struct {
	UserID string
	Type   TransactionType
	Status TransactionStatus
	Limit  int
	Offset int
}

// Wallet is the user facing view of an account and its log.
type Wallet struct {
	UserID       string          `json:"userId"`
	Balance      decimal.Decimal `json:"balance"`
	Reserved     decimal.Decimal `json:"reserved"`
	Available    decimal.Decimal `json:"available"`
	Currency     string          `json:"currency"`
	Transactions []Transaction   `json:"transactions"`
}

type Reconciliation struct {
	UserID           string          `json:"userId"`
	CachedBalance    decimal.Decimal `json:"cachedBalance"`
	ComputedBalance  decimal.Decimal `json:"computedBalance"`
	CachedReserved   decimal.Decimal `json:"cachedReserved"`
	ComputedReserved decimal.Decimal `json:"computedReserved"`
	Drift            bool            `json:"drift"`
	Repaired         bool            `json:"repaired"`
}

type WithdrawalSettings struct {
	MinWithdrawal  decimal.Decimal `json:"minWithdrawal"`
	MaxWithdrawal  decimal.Decimal `json:"maxWithdrawal"`
	ProcessingTime string          `json:"processingTime"`
}

type DepositSettings struct {
	BankTransferRequiresApproval bool `json:"bankTransferRequiresApproval"`
	CardDepositInstant           bool `json:"cardDepositInstant"`
	PayPalDepositInstant         bool `json:"paypalDepositInstant"`
}

type WalletSettings struct {
	ServiceFee         decimal.Decimal    `json:"serviceFee"`
	Currency           string             `json:"currency"`
	WithdrawalSettings WithdrawalSettings `json:"withdrawalSettings"`
	DepositSettings    DepositSettings    `json:"depositSettings"`
}
