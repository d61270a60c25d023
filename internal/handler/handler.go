package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/webagency/backend/internal/invoice"
	"github.com/webagency/backend/internal/middleware"
	"github.com/webagency/backend/internal/repository"
	"github.com/webagency/backend/internal/service"
	"go.uber.org/zap"
)

type Handler struct {
	walletSvc   *service.WalletService
	refundSvc   *service.RefundService
	ticketSvc   *service.TicketService
	settingsSvc *service.SettingsService
	adminSvc    *service.AdminService
	validate    *validator.Validate
	logger      *zap.Logger
}

func New(
	walletSvc *service.WalletService,
	refundSvc *service.RefundService,
	ticketSvc *service.TicketService,
	settingsSvc *service.SettingsService,
	adminSvc *service.AdminService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		walletSvc:   walletSvc,
		refundSvc:   refundSvc,
		ticketSvc:   ticketSvc,
		settingsSvc: settingsSvc,
		adminSvc:    adminSvc,
		validate:    validator.New(),
		logger:      logger,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func ok(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func okMessage(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// parseBody decodes the JSON body into dst and runs its validate tags. The
// returned *fiber.Error is rendered by ErrorHandler.
func parseBody(c *fiber.Ctx, v *validator.Validate, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fiber.NewError(fiber.StatusBadRequest, "invalid or missing fields: "+strings.Join(fields, ", "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandler writes errors that escape a handler in the response envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return fail(c, code, message)
}

// subject resolves whose data a request acts on. Admins may name any user,
// everyone else always acts on themselves.
func subject(c *fiber.Ctx, requested string) (string, error) {
	caller := middleware.GetUserID(c)
	if requested == "" || requested == caller {
		return caller, nil
	}
	if middleware.IsAdmin(c) {
		return requested, nil
	}
	return "", service.ErrForbidden
}

// respondError maps service and repository errors onto the response envelope.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	return respondError(c, h.logger, err)
}

func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var insufficient *service.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Insufficient balance",
			"details": fiber.Map{
				"required":  insufficient.Required(),
				"available": insufficient.Available,
				"breakdown": fiber.Map{
					"withdrawal": insufficient.Requested,
					"serviceFee": insufficient.Fee,
				},
			},
		})
	}

	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingReason),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidTransactionType),
		errors.Is(err, service.ErrWithdrawalLimit),
		errors.Is(err, service.ErrInvalidTicket),
		errors.Is(err, service.ErrUnknownNamespace),
		errors.Is(err, service.ErrNoRecipient),
		errors.Is(err, invoice.ErrNoItems),
		errors.Is(err, invoice.ErrInvalidItem),
		errors.Is(err, invoice.ErrMissingNumber):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotCancellable):
		return fail(c, fiber.StatusForbidden, service.ErrNotCancellable.Error())
	case errors.Is(err, service.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "access denied")
	case errors.Is(err, repository.ErrTransactionNotFound):
		return fail(c, fiber.StatusNotFound, "transaction not found")
	case errors.Is(err, repository.ErrRefundNotFound):
		return fail(c, fiber.StatusNotFound, "refund request not found")
	case errors.Is(err, repository.ErrAccountNotFound):
		return fail(c, fiber.StatusNotFound, "wallet not found")
	case errors.Is(err, service.ErrOrderNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyProcessed),
		errors.Is(err, service.ErrDuplicateRefund),
		errors.Is(err, service.ErrTransactionNotPending):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrMailerNotConfigured):
		return fail(c, fiber.StatusServiceUnavailable, err.Error())
	}

	logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return fail(c, fiber.StatusInternalServerError, "internal server error")
}
