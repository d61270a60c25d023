package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/webagency/backend/internal/invoice"
)

func (h *AdminHandler) PreviewInvoice(c *fiber.Ctx) error {
	var in invoice.Input
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	_, page, err := h.invoiceSvc.Preview(c.Context(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page)
}

func (h *AdminHandler) InvoicePDF(c *fiber.Ctx) error {
	var in invoice.Input
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	doc, pdf, err := h.invoiceSvc.PDF(c.Context(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="Rechnung_`+doc.Number+`.pdf"`)
	return c.Send(pdf)
}

type SendInvoiceRequest struct {
	Invoice invoice.Input `json:"invoice"`
	To      string        `json:"to" validate:"omitempty,email"`
}

func (h *AdminHandler) SendInvoice(c *fiber.Ctx) error {
	var req SendInvoiceRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	doc, err := h.invoiceSvc.Send(c.Context(), req.Invoice, req.To)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Invoice sent",
		"data":    fiber.Map{"invoiceNumber": doc.Number},
	})
}
