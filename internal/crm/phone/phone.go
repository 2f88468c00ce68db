// Package phone normalizes phone numbers for the WhatsApp gateway.
package phone

import "strings"

const brazilPrefix = "55"

// Digits strips every non-digit character.
func Digits(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// FormatBrazil returns the digits of raw, prefixed with the Brazilian country
// code when the number looks like a local 10 or 11 digit number.
func FormatBrazil(raw string) string {
	clean := Digits(raw)
	switch {
	case strings.HasPrefix(clean, brazilPrefix):
		return clean
	case len(clean) == 10, len(clean) == 11:
		return brazilPrefix + clean
	default:
		return clean
	}
}

// Valid reports whether raw has between 10 and 13 digits.
func Valid(raw string) bool {
	n := len(Digits(raw))
	return n >= 10 && n <= 13
}
