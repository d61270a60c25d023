package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrNotCancellable         = errors.New("transaction cannot be cancelled")
	ErrAlreadyProcessed       = errors.New("refund request already processed")
	ErrMissingReason          = errors.New("a reason is required")
	ErrStorageFailure         = errors.New("storage failure")
	ErrWithdrawalLimit        = errors.New("withdrawal amount outside allowed range")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrTransactionNotPending  = errors.New("transaction is not pending")
	ErrDuplicateRefund        = errors.New("a refund request for this order is already pending")
	ErrOrderNotFound          = errors.New("order not found")
	ErrUnknownNamespace       = errors.New("unknown settings namespace")
	ErrForbidden              = errors.New("forbidden")
)

// InsufficientBalanceError reports the shortfall of a debit. It matches
// ErrInsufficientBalance with errors.Is.
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Fee       decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Required() decimal.Decimal {
	return e.Requested.Add(e.Fee)
}

func (e *InsufficientBalanceError) Error() string {
	if e.Fee.IsZero() {
		return fmt.Sprintf("insufficient balance: required %s, available %s",
			e.Required().StringFixed(2), e.Available.StringFixed(2))
	}
	return fmt.Sprintf("insufficient balance: required %s (%s + %s fee), available %s",
		e.Required().StringFixed(2), e.Requested.StringFixed(2), e.Fee.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// WithdrawalLimitError carries the configured bounds.
type WithdrawalLimitError struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (e *WithdrawalLimitError) Error() string {
	return fmt.Sprintf("withdrawal amount must be between %s and %s", e.Min.StringFixed(2), e.Max.StringFixed(2))
}

func (e *WithdrawalLimitError) Is(target error) bool {
	return target == ErrWithdrawalLimit
}

// validAmount accepts positive values with at most two fractional digits.
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}
