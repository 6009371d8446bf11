// Package money renders amounts in the terminal's single display convention:
// the taka sign, en-IN digit grouping and two decimal places.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Symbol precedes every rendered amount.
const Symbol = "৳"

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Format renders d as e.g. "৳ 1,500.00". The digits come from the decimal
// itself; only the whole part is grouped, and whole parts beyond int64 are
// written ungrouped.
func Format(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	_, frac, _ := strings.Cut(fixed, ".")

	whole := d.Truncate(0)
	if !whole.Equal(decimal.NewFromInt(whole.IntPart())) {
		return Symbol + " " + sign + fixed
	}
	return Symbol + " " + sign + printer.Sprint(number.Decimal(whole.IntPart())) + "." + frac
}

// Fixed renders d with exactly two decimals and no grouping, the wire
// representation used in JSON responses.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
