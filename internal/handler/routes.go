package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webagency/backend/internal/auth"
	"github.com/webagency/backend/internal/middleware"
)

// Register mounts every route of the API on app.
func Register(app *fiber.App, h *Handler, adminHandler *AdminHandler, issuer *auth.Issuer, webhookSecret string) {
	// Health check
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Public API
	app.Post("/api/auth/login", adminHandler.Login)
	app.Get("/api/wallet-settings", h.WalletSettings)

	// Webhooks, authenticated by body signature
	app.Post("/webhook/payments", middleware.PaymentSignature(webhookSecret), h.PaymentWebhook)

	authed := middleware.JWTAuth(issuer)
	adminOnly := middleware.AdminAuth()

	user := app.Group("/api/user", authed)

	// Wallet
	user.Get("/wallet", h.GetWallet)
	user.Post("/wallet", h.CreateTransaction)
	user.Delete("/wallet", h.DeleteTransaction)
	user.Put("/wallet", adminOnly, h.UpdateTransaction)
	user.Post("/wallet/request", h.RequestFunds)
	user.Post("/wallet/withdraw", h.Withdraw)
	user.Post("/wallet/purchase", h.Purchase)

	// Refunds
	user.Get("/refunds", h.ListRefunds)
	user.Post("/refunds", h.SubmitRefund)
	user.Delete("/refunds", h.CancelRefund)
	user.Put("/refunds", adminOnly, h.DecideRefund)
	user.Get("/refundable-items", h.RefundableItems)

	// Tickets
	user.Get("/tickets", h.ListTickets)
	user.Post("/tickets", h.CreateTicket)

	admin := app.Group("/api/admin", authed, adminOnly)

	admin.Get("/refunds", adminHandler.ListRefunds)
	admin.Post("/refunds/:id/approve", adminHandler.ApproveRefund)
	admin.Post("/refunds/:id/reject", adminHandler.RejectRefund)
	admin.Post("/refunds/:id/request-info", adminHandler.RequestRefundInfo)

	admin.Get("/tickets", adminHandler.ListTickets)
	admin.Post("/tickets", adminHandler.CreateTicket)

	admin.Get("/transactions", adminHandler.ListTransactions)
	admin.Get("/wallets/:userId/reconcile", adminHandler.CheckWallet)
	admin.Post("/wallets/:userId/reconcile", adminHandler.RepairWallet)

	admin.Get("/logs", adminHandler.GetLogs)

	admin.Put("/wallet-settings", adminHandler.UpdateWalletSettings)
	admin.Get("/settings", adminHandler.GetAllSettings)
	admin.Put("/settings", adminHandler.UpdateSection)
	admin.Get("/settings/:namespace", adminHandler.GetSettings)
	admin.Put("/settings/:namespace", adminHandler.UpdateSettings)

	admin.Post("/invoices/preview", adminHandler.PreviewInvoice)
	admin.Post("/invoices/pdf", adminHandler.InvoicePDF)
	admin.Post("/invoices/send", adminHandler.SendInvoice)
}
