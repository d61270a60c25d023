package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/service"
)

func (h *Handler) ListTickets(c *fiber.Ctx) error {
	userID, err := subject(c, c.Query("userId"))
	if err != nil {
		return h.respondError(c, err)
	}

	tickets, err := h.ticketSvc.List(c.Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, tickets)
}

type CreateTicketRequest struct {
	UserID          string               `json:"userId"`
	Subject         string               `json:"subject" validate:"required,max=200"`
	Message         string               `json:"message" validate:"required,max=5000"`
	Category        model.TicketCategory `json:"category"`
	Priority        model.TicketPriority `json:"priority"`
	RelatedRefundID *uuid.UUID           `json:"relatedRefundId"`
}

func (h *Handler) CreateTicket(c *fiber.Ctx) error {
	var req CreateTicketRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	userID, err := subject(c, req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}

	ticket, err := h.ticketSvc.Create(c.Context(), service.TicketInput{
		UserID:          userID,
		Subject:         req.Subject,
		Message:         req.Message,
		Category:        req.Category,
		Priority:        req.Priority,
		RelatedRefundID: req.RelatedRefundID,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusCreated, ticket)
}
