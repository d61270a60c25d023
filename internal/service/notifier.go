package service

import "github.com/webagency/backend/internal/model"

// Notifier interface for back office alerts (implemented by telegram.Bot)
type Notifier interface {
	SendRefundRequested(refund *model.RefundRequest) error
	SendWithdrawalRequested(tx *model.Transaction) error
}
