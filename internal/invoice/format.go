package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// FormatCurrency renders an amount the de-DE way: 1.234,56 €.
func FormatCurrency(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "EUR"
	}
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency)
	}
	return FormatNumber(amount) + " " + symbol
}

// FormatNumber renders two decimals with "." grouping and "," as separator.
func FormatNumber(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, "00"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatDate renders a de-DE short date.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatPercent renders a tax rate such as 19 or 7,5.
func FormatPercent(rate decimal.Decimal) string {
	return strings.Replace(rate.String(), ".", ",", 1) + " %"
}
