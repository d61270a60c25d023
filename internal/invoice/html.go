package invoice

import (
	"bytes"
	"embed"
	"html/template"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var printTemplate = template.Must(template.New("invoice.html").Funcs(template.FuncMap{
	"money":   FormatCurrency,
	"date":    FormatDate,
	"percent": FormatPercent,
	"qty": func(d decimal.Decimal) string {
		return strings.Replace(d.String(), ".", ",", 1)
	},
	"color": func(s string) template.CSS {
		if hexColorPattern.MatchString(s) {
			return template.CSS(s)
		}
		return template.CSS("#000000")
	},
}).ParseFS(templateFS, "templates/invoice.html"))

// RenderHTML produces the print view of the document.
func RenderHTML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
