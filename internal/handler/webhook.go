package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
	"go.uber.org/zap"
)

const webhookActor = "payment-webhook"

type PaymentWebhookPayload struct {
	TransactionID uuid.UUID               `json:"transactionId" validate:"required"`
	UserID        string                  `json:"userId"`
	Status        model.TransactionStatus `json:"status" validate:"required,oneof=completed failed"`
	Reference     string                  `json:"reference"`
}

// PaymentWebhook settles a pending transfer once the payment provider
// confirms or fails it. The body signature is checked by middleware.
func (h *Handler) PaymentWebhook(c *fiber.Ctx) error {
	var payload PaymentWebhookPayload
	if err := parseBody(c, h.validate, &payload); err != nil {
		return err
	}

	tx, err := h.walletSvc.UpdateTransactionStatus(c.Context(), payload.UserID, payload.TransactionID, payload.Status, webhookActor)
	if err != nil {
		h.logger.Warn("payment webhook rejected",
			zap.String("transactionId", payload.TransactionID.String()),
			zap.String("reference", payload.Reference),
			zap.Error(err),
		)
		return h.respondError(c, err)
	}

	h.logger.Info("payment webhook settled transaction",
		zap.String("transactionId", tx.ID.String()),
		zap.String("status", string(tx.Status)),
		zap.String("reference", payload.Reference),
	)
	return ok(c, fiber.StatusOK, tx)
}
