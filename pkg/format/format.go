// Package format renders numbers the way the dashboard shows them: Korean
// locale grouping, won amounts and one-decimal percentages.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const wonSymbol = "₩"

var printer = message.NewPrinter(language.Korean) //nolint:gochecknoglobals // printers are safe for concurrent use

// Currency formats value as Korean won without fraction digits, e.g.
// "₩1,000,000" and "-₩50,000".
func Currency(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return wonSymbol + "0"
	}
	rounded := math.Round(value)
	if rounded < 0 {
		return "-" + wonSymbol + printer.Sprintf("%v", number.Decimal(-rounded, number.MaxFractionDigits(0)))
	}
	return wonSymbol + printer.Sprintf("%v", number.Decimal(rounded, number.MaxFractionDigits(0)))
}

// Number formats value with thousand separators and up to three fraction
// digits, e.g. "1,234.56".
func Number(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0"
	}
	return printer.Sprintf("%v", number.Decimal(value, number.MaxFractionDigits(3)))
}

// Int formats an integer count with thousand separators.
func Int(value int64) string {
	return printer.Sprintf("%d", value)
}

// Percent formats value with one decimal place and a percent sign, e.g.
// 33.333 -> "33.3%".
func Percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
