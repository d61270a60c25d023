package model

import "github.com/shopspring/decimal"

// Settings namespaces, each stored as one JSON document under its key.
const (
	SettingsGeneral = "general"
	SettingsPayment = "payment"
	SettingsInvoice = "invoice"
	SettingsAI      = "ai"
	SettingsGoogle  = "google"
	SettingsLegal   = "legal"
	SettingsWallet  = "wallet"
)

var SettingsNamespaces = []string{
	SettingsGeneral,
	SettingsPayment,
	SettingsInvoice,
	SettingsAI,
	SettingsGoogle,
	SettingsLegal,
	SettingsWallet,
}

func IsSettingsNamespace(ns string) bool {
	for _, known := range SettingsNamespaces {
		if known == ns {
			return true
		}
	}
	return false
}

// Document is a decoded settings namespace.
type Document map[string]interface{}

// Clone copies the document deeply enough that nested maps and slices are not shared.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Document:
		return map[string]interface{}(t.Clone())
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

type BankTransferSettings struct {
	Enabled       bool   `json:"enabled"`
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	Currency      string `json:"currency"`
	Instructions  string `json:"instructions"`
}

type PaymentSettings struct {
	PayPal struct {
		Enabled  bool `json:"enabled"`
		TestMode bool `json:"testMode"`
	} `json:"paypal"`
	BankTransfer BankTransferSettings `json:"bankTransfer"`
}

type InvoiceSettings struct {
	Template           string          `json:"template"`
	PrimaryColor       string          `json:"primaryColor"`
	SecondaryColor     string          `json:"secondaryColor"`
	FontFamily         string          `json:"fontFamily"`
	LogoURL            string          `json:"logoUrl"`
	LogoWidth          int             `json:"logoWidth"`
	HeaderText         string          `json:"headerText"`
	FooterText         string          `json:"footerText"`
	ShowPayPalQR       bool            `json:"showPayPalQR"`
	ShowBankQR         bool            `json:"showBankQR"`
	TaxRate            decimal.Decimal `json:"taxRate"`
	Currency           string          `json:"currency"`
	InvoicePrefix      string          `json:"invoicePrefix"`
	InvoiceNumberStart int             `json:"invoiceNumberStart"`
}

type GeneralSettings struct {
	SiteName           string `json:"siteName"`
	SiteURL            string `json:"siteUrl"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	CompanyName        string `json:"companyName"`
	TaxID              string `json:"taxId"`
	CommercialRegister string `json:"commercialRegister"`
	ManagingDirector   string `json:"managingDirector"`
	CompanyLogoURL     string `json:"companyLogoUrl"`
}
