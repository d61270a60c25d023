package invoice

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	lineHeight = 5.0
)

// RenderPDF lays the document out on A4. The creation and modification dates
// are the invoice date, so equal documents render to equal bytes.
func RenderPDF(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.Date)
	pdf.SetModificationDate(doc.Date)
	pdf.SetTitle("Rechnung "+doc.Number, true)
	pdf.SetAuthor(doc.Company.Name, true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 25)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	r, g, b := hexColor(doc.PrimaryColor)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(110, 110, 110)
		parts := []string{doc.Company.Name}
		if doc.Company.ManagingDirector != "" {
			parts = append(parts, "Geschäftsführer: "+doc.Company.ManagingDirector)
		}
		if doc.Company.CommercialRegister != "" {
			parts = append(parts, doc.Company.CommercialRegister)
		}
		if doc.Company.TaxID != "" {
			parts = append(parts, "USt-IdNr.: "+doc.Company.TaxID)
		}
		pdf.CellFormat(0, 4, tr(strings.Join(parts, " | ")), "", 1, "C", false, 0, "")
		if doc.FooterText != "" {
			pdf.CellFormat(0, 4, tr(doc.FooterText), "", 1, "C", false, 0, "")
		}
	})

	pdf.AddPage()

	// company block, right aligned
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(r, g, b)
	pdf.CellFormat(0, 6, tr(doc.Company.Name), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(80, 80, 80)
	for _, line := range nonEmpty(doc.Company.Address, doc.Company.Email, doc.Company.Phone) {
		pdf.CellFormat(0, 4.5, tr(line), "", 1, "R", false, 0, "")
	}

	// customer block
	pdf.Ln(8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, lineHeight, tr(doc.Customer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range nonEmpty(doc.Customer.Address, doc.Customer.Email) {
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}
	if doc.Customer.TaxID != "" {
		pdf.CellFormat(0, lineHeight, tr("USt-IdNr.: "+doc.Customer.TaxID), "", 1, "L", false, 0, "")
	}

	// title and dates
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(r, g, b)
	pdf.CellFormat(0, 8, tr("Rechnung "+doc.Number), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, lineHeight, tr("Rechnungsdatum: "+FormatDate(doc.Date)), "", 1, "L", false, 0, "")
	if doc.DueDate != nil {
		pdf.CellFormat(0, lineHeight, tr("Fällig am: "+FormatDate(*doc.DueDate)), "", 1, "L", false, 0, "")
	}
	if doc.HeaderText != "" {
		pdf.Ln(3)
		pdf.MultiCell(0, lineHeight, tr(doc.HeaderText), "", "L", false)
	}

	// items table
	pdf.Ln(4)
	widths := []float64{90, 20, 35, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Beschreibung", "Menge", "Einzelpreis", "Gesamt"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, tr(h), "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range doc.Lines {
		pdf.CellFormat(widths[0], 6, tr(line.Description), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, strings.Replace(line.Quantity.String(), ".", ",", 1), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(FormatCurrency(line.UnitPrice, doc.Currency)), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(FormatCurrency(line.Total, doc.Currency)), "", 1, "R", false, 0, "")
	}

	// totals
	pdf.Ln(2)
	labelWidth := widths[0] + widths[1] + widths[2]
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, 6, tr(label), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(value), "", 1, "R", false, 0, "")
	}
	totalRow("Zwischensumme", FormatCurrency(doc.Totals.Subtotal, doc.Currency), false)
	totalRow("MwSt. "+FormatPercent(doc.TaxRate), FormatCurrency(doc.Totals.TaxAmount, doc.Currency), false)
	totalRow("Gesamtbetrag", FormatCurrency(doc.Totals.Total, doc.Currency), true)

	if doc.PaymentTerms != "" || doc.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		for _, text := range nonEmpty(doc.PaymentTerms, doc.Notes) {
			pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)
		}
	}

	// payment section
	if doc.PayPal != nil || doc.Bank != nil {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, tr("Zahlungsinformationen"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	if doc.PayPal != nil {
		pdf.CellFormat(0, lineHeight, tr("Bezahlen per PayPal:"), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 200)
		pdf.CellFormat(0, lineHeight, tr(doc.PayPal.Link), "", 1, "L", false, 0, doc.PayPal.Link)
		pdf.SetTextColor(0, 0, 0)
	}
	if doc.Bank != nil {
		pdf.Ln(2)
		pdf.CellFormat(0, lineHeight, tr("Banküberweisung:"), "", 1, "L", false, 0, "")
		for _, line := range nonEmpty(
			doc.Bank.BankName,
			"Kontoinhaber: "+doc.Bank.AccountHolder,
			"IBAN: "+doc.Bank.IBAN,
			optional("BIC: ", doc.Bank.BIC),
			"Verwendungszweck: "+doc.Bank.Reference,
			doc.Bank.Instructions,
		) {
			pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
		}
		pdf.SetTextColor(0, 0, 200)
		pdf.CellFormat(0, lineHeight, tr("GiroCode (QR)"), "", 1, "L", false, 0, doc.Bank.QRURL)
		pdf.SetTextColor(0, 0, 0)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to render invoice %s: %w", doc.Number, pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", doc.Number, err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func optional(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

// hexColor parses #rrggbb, falling back to black.
func hexColor(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
