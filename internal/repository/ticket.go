package repository

import (
	"context"

	"github.com/webagency/backend/internal/model"
)

func (r *Repository) CreateTicket(ctx context.Context, ticket *model.SupportTicket) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO support_tickets (id, user_id, subject, message, category, priority, status, related_refund_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ticket.ID, ticket.UserID, ticket.Subject, ticket.Message, ticket.Category, ticket.Priority,
		ticket.Status, ticket.RelatedRefundID, ticket.CreatedAt)
	return err
}

// ListTickets returns the tickets of one user, or of everyone when userID is empty.
func (r *Repository) ListTickets(ctx context.Context, userID string) ([]model.SupportTicket, error) {
	tickets := []model.SupportTicket{}
	query := `SELECT id, user_id, subject, message, category, priority, status, related_refund_id, created_at
		FROM support_tickets`
	var err error
	if userID == "" {
		err = r.q.SelectContext(ctx, &tickets, query+` ORDER BY created_at DESC`)
	} else {
		err = r.q.SelectContext(ctx, &tickets, query+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	}
	return tickets, err
}
