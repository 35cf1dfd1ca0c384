// Package mathrule recomputes campaign spend/reward figures from known
// phrasings, independent of the extraction service. It never guesses: when
// no pattern matches it returns nil fields, because zero is a legitimate
// value and must not be confused with "unknown".
package mathrule

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a Turkish-formatted number. The dot is a thousands
// separator only when every dot group has exactly three digits; a comma is
// always the decimal separator.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	var intPart, fracPart string
	if idx := strings.LastIndex(s, ","); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	} else {
		intPart = s
	}

	if strings.Contains(intPart, ".") {
		groups := strings.Split(intPart, ".")
		for i, g := range groups {
			if i == 0 {
				if g == "" || len(g) > 3 {
					return decimal.Zero, false
				}
				continue
			}
			if len(g) != 3 {
				return decimal.Zero, false
			}
		}
		intPart = strings.ReplaceAll(intPart, ".", "")
	}

	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Amounts extracts every distinct monetary amount followed by a currency
// token, in order of first appearance.
func Amounts(text string) []decimal.Decimal {
	matches := currencyAmount.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var out []decimal.Decimal
	for _, m := range matches {
		d, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		key := d.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

var currencyAmount = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*(?:,\d+)?|\d+(?:,\d+)?)\s*(?:TL|₺)`)
