package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
)

var ErrInvalidTicket = errors.New("subject and message are required")

type TicketService struct {
	repo repository.Store
}

func NewTicketService(repo repository.Store) *TicketService {
	return &TicketService{repo: repo}
}

type TicketInput struct {
	UserID          string
	Subject         string
	Message         string
	Category        model.TicketCategory
	Priority        model.TicketPriority
	RelatedRefundID *uuid.UUID
}

// Create opens a support ticket. Category defaults to general, priority to medium.
func (s *TicketService) Create(ctx context.Context, in TicketInput) (*model.SupportTicket, error) {
	return s.create(ctx, s.repo, in)
}

func (s *TicketService) create(ctx context.Context, store repository.Store, in TicketInput) (*model.SupportTicket, error) {
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, ErrInvalidTicket
	}

	category := in.Category
	switch category {
	case model.TicketCategoryGeneral, model.TicketCategoryTechnical, model.TicketCategoryBilling, model.TicketCategoryRefund:
	case "":
		category = model.TicketCategoryGeneral
	default:
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidTicket, category)
	}

	priority := in.Priority
	switch priority {
	case model.TicketPriorityLow, model.TicketPriorityMedium, model.TicketPriorityHigh:
	case "":
		priority = model.TicketPriorityMedium
	default:
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTicket, priority)
	}

	ticket := &model.SupportTicket{
		ID:              uuid.New(),
		UserID:          in.UserID,
		Subject:         strings.TrimSpace(in.Subject),
		Message:         in.Message,
		Category:        category,
		Priority:        priority,
		Status:          model.TicketStatusOpen,
		RelatedRefundID: in.RelatedRefundID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := store.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return ticket, nil
}

// List returns the tickets of a user, or all tickets for an empty userID
func (s *TicketService) List(ctx context.Context, userID string) ([]model.SupportTicket, error) {
	return s.repo.ListTickets(ctx, userID)
}
