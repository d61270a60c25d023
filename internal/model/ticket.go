package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketCategory string

const (
	TicketCategoryGeneral   TicketCategory = "general"
	TicketCategoryTechnical TicketCategory = "technical"
	TicketCategoryBilling   TicketCategory = "billing"
	TicketCategoryRefund    TicketCategory = "refund"
)

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

type SupportTicket struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	UserID          string         `json:"userId" db:"user_id"`
	Subject         string         `json:"subject" db:"subject"`
	Message         string         `json:"message" db:"message"`
	Category        TicketCategory `json:"category" db:"category"`
	Priority        TicketPriority `json:"priority" db:"priority"`
	Status          TicketStatus   `json:"status" db:"status"`
	RelatedRefundID *uuid.UUID     `json:"relatedRefundId,omitempty" db:"related_refund_id"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
}
