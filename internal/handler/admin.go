package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/webagency/backend/internal/middleware"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/service"
	"go.uber.org/zap"
)

// AdminHandler handles back office requests
type AdminHandler struct {
	adminSvc    *service.AdminService
	walletSvc   *service.WalletService
	refundSvc   *service.RefundService
	ticketSvc   *service.TicketService
	settingsSvc *service.SettingsService
	invoiceSvc  *service.InvoiceService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewAdminHandler(
	adminSvc *service.AdminService,
	walletSvc *service.WalletService,
	refundSvc *service.RefundService,
	ticketSvc *service.TicketService,
	settingsSvc *service.SettingsService,
	invoiceSvc *service.InvoiceService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminSvc:    adminSvc,
		walletSvc:   walletSvc,
		refundSvc:   refundSvc,
		ticketSvc:   ticketSvc,
		settingsSvc: settingsSvc,
		invoiceSvc:  invoiceSvc,
		validate:    validator.New(),
		logger:      logger,
	}
}

func (h *AdminHandler) respondError(c *fiber.Ctx, err error) error {
	return respondError(c, h.logger, err)
}

// --- Auth ---

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	token, err := h.adminSvc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"token": token})
}

// --- Refunds ---

func (h *AdminHandler) ListRefunds(c *fiber.Ctx) error {
	refunds, err := h.refundSvc.List(c.Context(), model.RefundFilter{
		UserID: c.Query("userId"),
		Status: model.RefundStatus(c.Query("status")),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, refunds)
}

type RefundNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (h *AdminHandler) ApproveRefund(c *fiber.Ctx) error {
	refundID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid refund id")
	}
	var req RefundNotesRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, h.validate, &req); err != nil {
			return err
		}
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	refund, err := h.refundSvc.Approve(c.Context(), refundID, middleware.GetUserID(c), notes)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, refund)
}

func (h *AdminHandler) RejectRefund(c *fiber.Ctx) error {
	refundID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid refund id")
	}
	var req RefundNotesRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	refund, err := h.refundSvc.Reject(c.Context(), refundID, middleware.GetUserID(c), req.Notes)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, refund)
}

type RequestInfoRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

func (h *AdminHandler) RequestRefundInfo(c *fiber.Ctx) error {
	refundID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid refund id")
	}
	var req RequestInfoRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	ticket, err := h.refundSvc.RequestMoreInfo(c.Context(), refundID, middleware.GetUserID(c), req.Message)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusCreated, ticket)
}

// --- Tickets ---

func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.ticketSvc.List(c.Context(), c.Query("userId"))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, tickets)
}

type AdminTicketRequest struct {
	UserID string `json:"userId" validate:"required"`
	CreateTicketRequest
}

// CreateTicket opens a ticket on behalf of a customer
func (h *AdminHandler) CreateTicket(c *fiber.Ctx) error {
	var req AdminTicketRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	ticket, err := h.ticketSvc.Create(c.Context(), service.TicketInput{
		UserID:          req.UserID,
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

// --- Wallets ---

func (h *AdminHandler) ListTransactions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	filter := model.TransactionFilter{
		UserID: c.Query("userId"),
		Type:   model.TransactionType(c.Query("type")),
		Status: model.TransactionStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return h.respondError(c, service.ErrInvalidTransactionType)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return h.respondError(c, service.ErrInvalidStatus)
	}

	transactions, err := h.walletSvc.ListTransactions(c.Context(), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, transactions)
}

// CheckWallet compares the cached balance with the transaction log
func (h *AdminHandler) CheckWallet(c *fiber.Ctx) error {
	result, err := h.walletSvc.Reconcile(c.Context(), c.Params("userId"), false)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, result)
}

// RepairWallet rewrites a drifted cached balance from the transaction log
func (h *AdminHandler) RepairWallet(c *fiber.Ctx) error {
	userID := c.Params("userId")
	result, err := h.walletSvc.Reconcile(c.Context(), userID, true)
	if err != nil {
		return h.respondError(c, err)
	}

	if result.Repaired {
		err = h.adminSvc.LogAction(c.Context(), nil, middleware.GetUserID(c), model.AdminActionReconcileWallet, &userID, result)
		if err != nil {
			h.logger.Error("failed to log wallet repair", zap.String("userId", userID), zap.Error(err))
		}
	}
	return ok(c, fiber.StatusOK, result)
}

// --- Logs ---

func (h *AdminHandler) GetLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	logs, err := h.adminSvc.GetLogs(c.Context(), limit, offset)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, logs)
}
