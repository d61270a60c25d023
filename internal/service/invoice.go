package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/webagency/backend/internal/invoice"
	"go.uber.org/zap"
)

var (
	ErrMailerNotConfigured = errors.New("invoice e-mail is not configured")
	ErrNoRecipient         = errors.New("no recipient for invoice")
)

type InvoiceService struct {
	settings *SettingsService
	mailer   invoice.Mailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewInvoiceService(settings *SettingsService, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// SetMailer enables Send
func (s *InvoiceService) SetMailer(mailer invoice.Mailer) {
	s.mailer = mailer
}

// Build fills in the number and date when missing and computes the document
// from the current settings.
func (s *InvoiceService) Build(ctx context.Context, in invoice.Input) (*invoice.Document, error) {
	settings := invoice.Settings{
		General: s.settings.General(ctx),
		Invoice: s.settings.Invoice(ctx),
		Payment: s.settings.Payment(ctx),
	}
	if in.Date.IsZero() {
		now := s.now()
		in.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		in.InvoiceNumber = invoice.GenerateNumber(settings.Invoice.InvoicePrefix, in.Date)
	}
	return invoice.Build(in, settings)
}

func (s *InvoiceService) Preview(ctx context.Context, in invoice.Input) (*invoice.Document, []byte, error) {
	doc, err := s.Build(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	page, err := invoice.RenderHTML(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return doc, page, nil
}

func (s *InvoiceService) PDF(ctx context.Context, in invoice.Input) (*invoice.Document, []byte, error) {
	doc, err := s.Build(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := invoice.RenderPDF(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, pdf, nil
}

// Send e-mails the rendered PDF to the customer, or to a given address.
func (s *InvoiceService) Send(ctx context.Context, in invoice.Input, to string) (*invoice.Document, error) {
	if s.mailer == nil {
		return nil, ErrMailerNotConfigured
	}
	doc, pdf, err := s.PDF(ctx, in)
	if err != nil {
		return nil, err
	}
	if to == "" {
		to = doc.Customer.Email
	}
	if to == "" {
		return nil, ErrNoRecipient
	}

	body := fmt.Sprintf("<p>Sehr geehrte/r %s,</p><p>anbei erhalten Sie Ihre Rechnung %s über %s.</p><p>%s</p>",
		html.EscapeString(doc.Customer.Name), html.EscapeString(doc.Number),
		invoice.FormatCurrency(doc.Totals.Total, doc.Currency), html.EscapeString(doc.Company.Name))

	err = s.mailer.Send(invoice.Message{
		To:       to,
		Subject:  "Rechnung " + doc.Number,
		HTMLBody: body,
		Attachments: []invoice.Attachment{{
			Filename:    "Rechnung_" + doc.Number + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
	if err != nil {
		s.logger.Error("failed to send invoice", zap.String("invoice", doc.Number), zap.String("to", to), zap.Error(err))
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}

	s.logger.Info("invoice sent", zap.String("invoice", doc.Number), zap.String("to", to))
	return doc, nil
}
