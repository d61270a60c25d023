package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/webagency/backend/internal/middleware"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/service"
)

// GetWallet returns the balance and transaction history
func (h *Handler) GetWallet(c *fiber.Ctx) error {
	userID, err := subject(c, c.Query("userId"))
	if err != nil {
		return h.respondError(c, err)
	}

	wallet, err := h.walletSvc.GetWallet(c.Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, wallet)
}

type CreateTransactionRequest struct {
	UserID        string                   `json:"userId"`
	Type          string                   `json:"type"`
	Amount        decimal.Decimal          `json:"amount"`
	Description   string                   `json:"description" validate:"required,max=500"`
	PaymentMethod *model.PaymentMethod     `json:"paymentMethod" validate:"omitempty,oneof=card paypal bank_transfer mollie"`
	Status        *model.TransactionStatus `json:"status"`
}

// CreateTransaction records a deposit. Deposits of regular users stay pending
// until the payment webhook or an admin settles them. Only admins may force the
// initial status.
func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	var req CreateTransactionRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	if req.Type != "" && req.Type != string(model.TransactionTypeDeposit) && req.Type != "credit" {
		return h.respondError(c, service.ErrInvalidTransactionType)
	}
	if req.Status != nil && !middleware.IsAdmin(c) {
		return h.respondError(c, service.ErrForbidden)
	}

	userID, err := subject(c, req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}

	tx, err := h.walletSvc.Deposit(c.Context(), service.DepositInput{
		UserID:        userID,
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Confirmed:     middleware.IsAdmin(c),
		Status:        req.Status,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return h.transactionCreated(c, tx)
}

// DeleteTransaction cancels a pending transfer of the caller
func (h *Handler) DeleteTransaction(c *fiber.Ctx) error {
	userID, err := subject(c, c.Query("userId"))
	if err != nil {
		return h.respondError(c, err)
	}
	transactionID, err := uuid.Parse(c.Query("transactionId"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid transactionId")
	}

	if err := h.walletSvc.DeleteTransaction(c.Context(), userID, transactionID); err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Transaction deleted")
}

type UpdateTransactionRequest struct {
	UserID string                  `json:"userId"`
	ID     uuid.UUID               `json:"id" validate:"required"`
	Status model.TransactionStatus `json:"status" validate:"required"`
}

// UpdateTransaction settles a pending transaction (admin)
func (h *Handler) UpdateTransaction(c *fiber.Ctx) error {
	var req UpdateTransactionRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	tx, err := h.walletSvc.UpdateTransactionStatus(c.Context(), req.UserID, req.ID, req.Status, middleware.GetUserID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, tx)
}

type FundRequest struct {
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=500"`
}

// RequestFunds files a pending deposit for an admin to approve
func (h *Handler) RequestFunds(c *fiber.Ctx) error {
	var req FundRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	userID, err := subject(c, req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}

	tx, err := h.walletSvc.RequestFunds(c.Context(), userID, req.Amount, req.Description)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.transactionCreated(c, tx)
}

type WithdrawRequest struct {
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID string          `json:"bankAccountId"`
}

func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	userID, err := subject(c, req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}

	tx, err := h.walletSvc.RequestWithdrawal(c.Context(), userID, req.Amount)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.transactionCreated(c, tx)
}

type PurchaseRequest struct {
	UserID      string          `json:"userId"`
	OrderID     string          `json:"orderId" validate:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=500"`
}

// Purchase pays an order from the wallet
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req PurchaseRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	userID, err := subject(c, req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}

	tx, err := h.walletSvc.Purchase(c.Context(), userID, req.OrderID, req.Amount, req.Description)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.transactionCreated(c, tx)
}

func (h *Handler) transactionCreated(c *fiber.Ctx, tx *model.Transaction) error {
	wallet, err := h.walletSvc.GetWallet(c.Context(), tx.UserID)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusCreated, fiber.Map{
		"transaction": tx,
		"balance":     wallet.Balance,
		"available":   wallet.Available,
	})
}

// WalletSettings is the public view of fees and limits
func (h *Handler) WalletSettings(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, h.settingsSvc.Wallet(c.Context()))
}
