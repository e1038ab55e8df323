package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	arabicPrinter  = message.NewPrinter(language.Arabic)
	englishPrinter = message.NewPrinter(language.English)
)

// FormatAmount renders a monetary amount with grouped digits for the given
// locale tag ("ar" default). Used for the display fields the API returns next
// to raw numeric values.
func FormatAmount(amount float64, locale string) string {
	p := arabicPrinter
	if locale == "en" {
		p = englishPrinter
	}
	return p.Sprintf("%.2f", amount)
}
