// Package invoice turns invoice input and the settings documents into a
// rendered invoice. Everything except Send is a pure function of its input.
package invoice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Item struct {
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// LineTotal is the supplied total, or quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	if i.Total != nil {
		return i.Total.Round(2)
	}
	return i.Quantity.Mul(i.UnitPrice).Round(2)
}

type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

// Calculate sums the items and applies taxRate (a percentage). All three
// values are rounded half up to cents.
func Calculate(items []Item, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax).Round(2),
	}
}

// GenerateNumber returns PREFIX-YYYYMM-NNNN with a random four digit suffix.
func GenerateNumber(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "INV"
	}
	suffix := int64(0)
	if n, err := rand.Int(rand.Reader, big.NewInt(10000)); err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("%s-%04d%02d-%04d", prefix, now.Year(), int(now.Month()), suffix)
}
