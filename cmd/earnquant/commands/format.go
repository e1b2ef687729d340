package commands

import (
	"fmt"
	"strings"
)

const separator = "════════════════════════════════════════════════════════════"

// formatMoney renders a dollar amount with thousands separators and two
// decimals, e.g. 1234567.891 -> "1,234,567.89".
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	s := fmt.Sprintf("%.2f", v)
	dot := strings.Index(s, ".")
	intPart, fracPart := s[:dot], s[dot:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + fracPart
	if neg {
		return "-" + out
	}
	return out
}
