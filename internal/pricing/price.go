// Package pricing converts between display price text and numeric prices and
// quotes build-your-own pizzas.
package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice returns the numeric value of a price. Numbers pass through; strings
// are stripped of everything but digits, '.' and '-' and the longest numeric
// prefix is parsed. Anything unparsable or non-finite yields 0.
func ParsePrice(v any) float64 {
	var n float64
	switch p := v.(type) {
	case float64:
		n = p
	case float32:
		n = float64(p)
	case int:
		n = float64(p)
	case int64:
		n = float64(p)
	case json.Number:
		n = parseLeadingFloat(string(p))
	case string:
		n = parseLeadingFloat(strip(p))
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// FormatPrice renders n with exactly two decimals; non-finite input renders as 0.00.
func FormatPrice(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	return decimal.NewFromFloat(n).StringFixed(2)
}

// DisplayPrice is the shelf label for n, e.g. "$12.50".
func DisplayPrice(n float64) string {
	return "$" + FormatPrice(n)
}

// Round2 rounds n to cents, halves away from zero.
func Round2(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return decimal.NewFromFloat(n).Round(2).InexactFloat64()
}

func strip(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseLeadingFloat parses the longest prefix of s that forms a decimal number:
// an optional sign, digits, and at most one fraction point.
func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits, dot := 0, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			break scan
		}
		end++
	}
	if digits == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return n
}
