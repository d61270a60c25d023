package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/webagency/backend/internal/middleware"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/service"
)

// ListRefunds returns the caller's refund requests. Admins without a userId
// filter see all of them.
func (h *Handler) ListRefunds(c *fiber.Ctx) error {
	filter := model.RefundFilter{Status: model.RefundStatus(c.Query("status"))}
	if requested := c.Query("userId"); requested != "" || !middleware.IsAdmin(c) {
		userID, err := subject(c, requested)
		if err != nil {
			return h.respondError(c, err)
		}
		filter.UserID = userID
	}

	refunds, err := h.refundSvc.List(c.Context(), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, refunds)
}

// RefundableItems lists purchases the caller can still request a refund for
func (h *Handler) RefundableItems(c *fiber.Ctx) error {
	userID, err := subject(c, c.Query("userId"))
	if err != nil {
		return h.respondError(c, err)
	}

	items, err := h.refundSvc.RefundableItems(c.Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, items)
}

type SubmitRefundRequest struct {
	UserID     string          `json:"userId"`
	OrderID    string          `json:"orderId" validate:"required,max=100"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason" validate:"max=2000"`
	ItemType   *string         `json:"itemType" validate:"omitempty,max=50"`
	ItemName   *string         `json:"itemName" validate:"omitempty,max=200"`
	OpenTicket bool            `json:"openTicket"`
}

func (h *Handler) SubmitRefund(c *fiber.Ctx) error {
	var req SubmitRefundRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	userID, err := subject(c, req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}

	refund, err := h.refundSvc.Submit(c.Context(), service.SubmitRefundInput{
		UserID:     userID,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		ItemType:   req.ItemType,
		ItemName:   req.ItemName,
		OpenTicket: req.OpenTicket,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusCreated, refund)
}

// CancelRefund withdraws a pending request of the caller
func (h *Handler) CancelRefund(c *fiber.Ctx) error {
	userID, err := subject(c, c.Query("userId"))
	if err != nil {
		return h.respondError(c, err)
	}
	refundID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}

	if err := h.refundSvc.Cancel(c.Context(), userID, refundID); err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Refund request cancelled")
}

type DecideRefundRequest struct {
	ID         uuid.UUID          `json:"id" validate:"required"`
	Status     model.RefundStatus `json:"status" validate:"required"`
	AdminNotes string             `json:"adminNotes" validate:"max=2000"`
}

// DecideRefund approves or rejects a refund (admin)
func (h *Handler) DecideRefund(c *fiber.Ctx) error {
	var req DecideRefundRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	refund, err := h.refundSvc.Decide(c.Context(), req.ID, req.Status, middleware.GetUserID(c), req.AdminNotes)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, refund)
}
