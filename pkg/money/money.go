// Package money formats prices and cash amounts at display boundaries.
// Internal matching math stays on float64 with no intermediate rounding;
// rounding happens here, once, at the edge.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Format renders a dollar amount with stable two-decimal rounding,
// e.g. 12.5 -> "$12.50".
func Format(amount float64) string {
	d := decimal.NewFromFloat(amount)
	return "$" + d.StringFixed(2)
}

// FormatPerGram renders a unit price, e.g. 12.5 -> "$12.50/g".
func FormatPerGram(price float64) string {
	return Format(price) + "/g"
}

// FormatGrams renders an integer quantity of grams, e.g. 50 -> "50g".
func FormatGrams(grams int64) string {
	return fmt.Sprintf("%dg", grams)
}
