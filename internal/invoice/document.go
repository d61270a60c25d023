package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/webagency/backend/internal/model"
)

var (
	ErrNoItems       = errors.New("invoice has no items")
	ErrInvalidItem   = errors.New("invalid invoice item")
	ErrMissingNumber = errors.New("invoice number is required")
)

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
}

type Input struct {
	InvoiceNumber string           `json:"invoiceNumber"`
	Date          time.Time        `json:"date"`
	DueDate       *time.Time       `json:"dueDate,omitempty"`
	Customer      Customer         `json:"customer"`
	Items         []Item           `json:"items"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	PaymentTerms  string           `json:"paymentTerms,omitempty"`
	PaymentLink   string           `json:"paymentLink,omitempty"`
}

// Settings are the three settings documents an invoice reads.
type Settings struct {
	General model.GeneralSettings
	Invoice model.InvoiceSettings
	Payment model.PaymentSettings
}

type Company struct {
	Name               string `json:"name"`
	Address            string `json:"address"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	TaxID              string `json:"taxId"`
	CommercialRegister string `json:"commercialRegister"`
	ManagingDirector   string `json:"managingDirector"`
	LogoURL            string `json:"logoUrl,omitempty"`
}

type Line struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

type PayPalSection struct {
	Link  string `json:"link"`
	QRURL string `json:"qrUrl"`
}

type BankSection struct {
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	Reference     string `json:"reference"`
	Instructions  string `json:"instructions,omitempty"`
	EPC           string `json:"epc"`
	QRURL         string `json:"qrUrl"`
}

// Document is a fully computed invoice. Renderers only format it.
type Document struct {
	Number       string          `json:"invoiceNumber"`
	Date         time.Time       `json:"date"`
	DueDate      *time.Time      `json:"dueDate,omitempty"`
	Company      Company         `json:"company"`
	Customer     Customer        `json:"customer"`
	Lines        []Line          `json:"items"`
	TaxRate      decimal.Decimal `json:"taxRate"`
	Totals       Totals          `json:"totals"`
	Currency     string          `json:"currency"`
	HeaderText   string          `json:"headerText,omitempty"`
	FooterText   string          `json:"footerText,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	PaymentTerms string          `json:"paymentTerms,omitempty"`
	PrimaryColor string          `json:"primaryColor,omitempty"`
	PayPal       *PayPalSection  `json:"paypal,omitempty"`
	Bank         *BankSection    `json:"bank,omitempty"`
}

// Build computes the invoice document. It does no I/O.
func Build(in Input, s Settings) (*Document, error) {
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		return nil, ErrMissingNumber
	}
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}

	lines := make([]Line, 0, len(in.Items))
	for i, item := range in.Items {
		if strings.TrimSpace(item.Description) == "" {
			return nil, fmt.Errorf("%w: item %d has no description", ErrInvalidItem, i+1)
		}
		if !item.Quantity.IsPositive() || item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d", ErrInvalidItem, i+1)
		}
		lines = append(lines, Line{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
			Total:       item.LineTotal(),
		})
	}

	taxRate := s.Invoice.TaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("%w: negative tax rate", ErrInvalidItem)
	}

	currency := s.Invoice.Currency
	if currency == "" {
		currency = "EUR"
	}

	date := in.Date
	if date.IsZero() {
		return nil, errors.New("invoice date is required")
	}

	doc := &Document{
		Number:  in.InvoiceNumber,
		Date:    date,
		DueDate: in.DueDate,
		Company: Company{
			Name:               s.General.CompanyName,
			Address:            s.General.Address,
			Email:              s.General.Email,
			Phone:              s.General.Phone,
			TaxID:              s.General.TaxID,
			CommercialRegister: s.General.CommercialRegister,
			ManagingDirector:   s.General.ManagingDirector,
			LogoURL:            firstNonEmpty(s.Invoice.LogoURL, s.General.CompanyLogoURL),
		},
		Customer:     in.Customer,
		Lines:        lines,
		TaxRate:      taxRate,
		Totals:       Calculate(in.Items, taxRate),
		Currency:     currency,
		HeaderText:   s.Invoice.HeaderText,
		FooterText:   s.Invoice.FooterText,
		Notes:        in.Notes,
		PaymentTerms: in.PaymentTerms,
		PrimaryColor: s.Invoice.PrimaryColor,
	}

	if in.PaymentLink != "" && s.Invoice.ShowPayPalQR {
		doc.PayPal = &PayPalSection{
			Link:  in.PaymentLink,
			QRURL: QRImageURL(in.PaymentLink),
		}
	}

	bank := s.Payment.BankTransfer
	if bank.IBAN != "" && s.Invoice.ShowBankQR {
		holder := firstNonEmpty(bank.AccountHolder, s.General.CompanyName)
		epc := EPCPayload(bank.BIC, holder, bank.IBAN, doc.Totals.Total, doc.Number)
		doc.Bank = &BankSection{
			BankName:      bank.BankName,
			AccountHolder: holder,
			IBAN:          bank.IBAN,
			BIC:           bank.BIC,
			Reference:     doc.Number,
			Instructions:  bank.Instructions,
			EPC:           epc,
			QRURL:         QRImageURL(epc),
		}
	}
	return doc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
