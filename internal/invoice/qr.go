package invoice

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const qrServerURL = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data="

// EPCPayload builds the SEPA credit transfer text block read by banking apps.
func EPCPayload(bic, name, iban string, amount decimal.Decimal, invoiceNumber string) string {
	return strings.Join([]string{
		"BCD",
		"002",
		"1",
		"SCT",
		bic,
		name,
		strings.ReplaceAll(iban, " ", ""),
		"EUR" + amount.StringFixed(2),
		"",
		invoiceNumber,
		"",
		"Rechnung " + invoiceNumber,
	}, "\n")
}

// QRImageURL returns the QR server image that encodes data.
func QRImageURL(data string) string {
	return qrServerURL + strings.ReplaceAll(url.QueryEscape(data), "+", "%20")
}
