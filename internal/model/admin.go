package model

import (
	"time"

	"github.com/google/uuid"
)

type AdminLog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AdminID      string    `json:"adminId" db:"admin_id"`
	Action       string    `json:"action" db:"action"`
	TargetUserID *string   `json:"targetUserId,omitempty" db:"target_user_id"`
	Details      []byte    `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Admin action constants
const (
	AdminActionApproveRefund     = "approve_refund"
	AdminActionRejectRefund      = "reject_refund"
	AdminActionRequestRefundInfo = "request_refund_info"
	AdminActionUpdateTransaction = "update_transaction_status"
	AdminActionUpdateSettings    = "update_settings"
	AdminActionReconcileWallet   = "reconcile_wallet"
)
