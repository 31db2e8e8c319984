// Package core provides the pure domain of the expense engine: money and
// date parsing, billing-period math, and budget aggregation. It has no
// dependencies; all I/O lives in the adapter packages.
package core

import (
	"strconv"
	"strings"
)

// Money is a whole-unit currency amount. Amounts enter the system through
// ParseAmount, which strips every non-digit character before parsing, so
// fractional units cannot occur.
type Money int64

// ParseAmount normalizes free-text numeric input to Money. All non-digit
// characters (currency symbols, grouping separators, stray text) are
// stripped first; whatever digits remain are parsed as a whole amount.
// Empty or digit-free input yields 0, never an error.
func ParseAmount(s string) Money {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		// Only reachable on overflow-sized digit runs.
		return 0
	}
	return Money(v)
}

// Format renders the amount with dot thousands separators ("1.250.000"),
// matching the grouping used in the exported reports.
func (m Money) Format() string {
	neg := m < 0
	v := int64(m)
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte('.')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// FormatCurrency renders the amount with the currency prefix ("Rp50.000").
func (m Money) FormatCurrency() string {
	if m < 0 {
		return "-Rp" + (-m).Format()
	}
	return "Rp" + m.Format()
}
