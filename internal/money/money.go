// Package money formats prices for display and for lexicographic sorting.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const keyWidth = 15

// FormatBRL renders a decimal as a pt-BR currency string ("R$ 1.234,56").
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + group(d)
}

// SortableKey renders a price as a fixed-width, right-justified string
// whose lexicographic order matches numeric order. Table widgets that
// sort columns alphabetically can then sort prices correctly.
func SortableKey(d decimal.Decimal) string {
	s := group(d)
	if len(s) < keyWidth {
		s = strings.Repeat(" ", keyWidth-len(s)) + s
	}
	return "R$ " + s
}

// group renders 1234567.89 as "1.234.567,89".
func group(d decimal.Decimal) string {
	s := d.StringFixed(2) // "-1234567.89"
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String() + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
