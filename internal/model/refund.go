package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusApproved RefundStatus = "approved"
	RefundStatusRejected RefundStatus = "rejected"
)

func (s RefundStatus) Valid() bool {
	switch s {
	case RefundStatusPending, RefundStatusApproved, RefundStatusRejected:
		return true
	}
	return false
}

type RefundRequest struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        string          `json:"userId" db:"user_id"`
	OrderID       string          `json:"orderId" db:"order_id"`
	ItemType      *string         `json:"itemType,omitempty" db:"item_type"`
	ItemName      *string         `json:"itemName,omitempty" db:"item_name"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Reason        string          `json:"reason" db:"reason"`
	Status        RefundStatus    `json:"status" db:"status"`
	RequestDate   time.Time       `json:"requestDate" db:"request_date"`
	ProcessedDate *time.Time      `json:"processedDate,omitempty" db:"processed_date"`
	ProcessedBy   *string         `json:"processedBy,omitempty" db:"processed_by"`
	AdminNotes    *string         `json:"adminNotes,omitempty" db:"admin_notes"`
}

// IsPending reports whether an admin can still decide on the request.
func (r *RefundRequest) IsPending() bool {
	return r.Status == RefundStatusPending
}

// CreditDescription is the wallet line written when the refund is approved.
func (r *RefundRequest) CreditDescription() string {
	if r.ItemName != nil && *r.ItemName != "" {
		return "Refund for " + *r.ItemName
	}
	return "Refund for order " + r.OrderID
}

type RefundFilter struct {
	UserID  string
	OrderID string
	Status  RefundStatus
}

// RefundableItem is a completed purchase together with what is still open for refund.
type RefundableItem struct {
	OrderID     string          `json:"orderId"`
	Description string          `json:"description"`
	Paid        decimal.Decimal `json:"paid"`
	Refunded    decimal.Decimal `json:"refunded"`
	Refundable  decimal.Decimal `json:"refundable"`
	PurchasedAt time.Time       `json:"purchasedAt"`
}
