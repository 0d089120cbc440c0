package analytics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount as $1,234.56.
func FormatMoney(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatDecimal renders a number with two decimals and thousands separators.
func FormatDecimal(v float64) string {
	return printer.Sprintf("%.2f", v)
}
