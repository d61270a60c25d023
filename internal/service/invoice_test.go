package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/invoice"
	"github.com/webagency/backend/internal/model"
)

type fakeMailer struct {
	sent []invoice.Message
	err  error
}

func (m *fakeMailer) Send(msg invoice.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newInvoiceService(t *testing.T) (*InvoiceService, *testServices) {
	t.Helper()
	ts := newTestServices(t)
	svc := NewInvoiceService(ts.settings, zapNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC) }
	return svc, ts
}

func invoiceInput() invoice.Input {
	return invoice.Input{
		Customer: invoice.Customer{Name: "Erika Mustermann", Email: "erika@example.com"},
		Items: []invoice.Item{
			{Description: "Website", Quantity: dec("1"), UnitPrice: dec("1000")},
			{Description: "Hosting", Quantity: dec("12"), UnitPrice: dec("9.99")},
		},
	}
}

func TestInvoiceBuildFillsDefaults(t *testing.T) {
	svc, _ := newInvoiceService(t)

	doc, err := svc.Build(context.Background(), invoiceInput())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Number, "INV-202403-"), doc.Number)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), doc.Date)
	assert.Equal(t, "1119.88", doc.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "212.78", doc.Totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "1332.66", doc.Totals.Total.StringFixed(2))
}

func TestInvoiceBuildUsesInvoiceSettings(t *testing.T) {
	svc, ts := newInvoiceService(t)
	ctx := context.Background()

	_, err := ts.settings.Update(ctx, model.SettingsInvoice, model.Document{"invoicePrefix": "RE", "taxRate": 7})
	require.NoError(t, err)

	in := invoiceInput()
	in.InvoiceNumber = "RE-1"
	doc, err := svc.Build(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "RE-1", doc.Number)
	assert.Equal(t, "78.39", doc.Totals.TaxAmount.StringFixed(2))

	doc, err = svc.Build(ctx, invoiceInput())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Number, "RE-"), doc.Number)
}

func TestInvoiceRenderers(t *testing.T) {
	svc, _ := newInvoiceService(t)
	ctx := context.Background()
	in := invoiceInput()
	in.InvoiceNumber = "INV-202403-0001"

	_, page, err := svc.Preview(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, string(page), "INV-202403-0001")
	assert.Contains(t, string(page), "Erika Mustermann")

	_, pdf, err := svc.PDF(ctx, in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))

	_, _, err = svc.PDF(ctx, invoice.Input{})
	assert.ErrorIs(t, err, invoice.ErrNoItems)
}

func TestInvoiceSend(t *testing.T) {
	svc, _ := newInvoiceService(t)
	ctx := context.Background()
	in := invoiceInput()
	in.InvoiceNumber = "INV-202403-0001"

	_, err := svc.Send(ctx, in, "")
	assert.ErrorIs(t, err, ErrMailerNotConfigured)

	mailer := &fakeMailer{}
	svc.SetMailer(mailer)
	_, err = svc.Send(ctx, in, "")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "erika@example.com", msg.To)
	assert.Equal(t, "Rechnung INV-202403-0001", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Rechnung_INV-202403-0001.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)

	_, err = svc.Send(ctx, in, "billing@example.com")
	require.NoError(t, err)
	assert.Equal(t, "billing@example.com", mailer.sent[1].To)

	mailer.err = errors.New("smtp down")
	_, err = svc.Send(ctx, in, "")
	assert.Error(t, err)
}
