package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
)

const refundColumns = `id, user_id, order_id, item_type, item_name, amount, reason, status,
	request_date, processed_date, processed_by, admin_notes`

func (r *Repository) CreateRefund(ctx context.Context, refund *model.RefundRequest) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refund_requests (`+refundColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		refund.ID, refund.UserID, refund.OrderID, refund.ItemType, refund.ItemName, refund.Amount,
		refund.Reason, refund.Status, refund.RequestDate, refund.ProcessedDate, refund.ProcessedBy,
		refund.AdminNotes)
	return err
}

func (r *Repository) GetRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	var refund model.RefundRequest
	err := r.q.GetContext(ctx, &refund, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, ErrRefundNotFound)
	}
	return &refund, nil
}

func (r *Repository) LockRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	var refund model.RefundRequest
	err := r.q.GetContext(ctx, &refund, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, ErrRefundNotFound)
	}
	return &refund, nil
}

func (r *Repository) UpdateRefund(ctx context.Context, refund *model.RefundRequest) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refund_requests
		SET status = $1, processed_date = $2, processed_by = $3, admin_notes = $4
		WHERE id = $5`,
		refund.Status, refund.ProcessedDate, refund.ProcessedBy, refund.AdminNotes, refund.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRefundNotFound
	}
	return nil
}

func (r *Repository) DeleteRefund(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refund_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRefundNotFound
	}
	return nil
}

// ListRefunds returns refund requests, newest first
func (r *Repository) ListRefunds(ctx context.Context, filter model.RefundFilter) ([]model.RefundRequest, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.OrderID != "" {
		args = append(args, filter.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + refundColumns + ` FROM refund_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY request_date DESC, id"

	refunds := []model.RefundRequest{}
	err := r.q.SelectContext(ctx, &refunds, query, args...)
	return refunds, err
}

func (r *Repository) HasPendingRefund(ctx context.Context, userID, orderID string) (bool, error) {
	var exists bool
	err := r.q.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM refund_requests WHERE user_id = $1 AND order_id = $2 AND status = $3
		)`, userID, orderID, model.RefundStatusPending)
	return exists, err
}
