package acat

import "strings"

// CUSIP identifiers are 9 characters: an 8-character alphanumeric base plus a
// check digit. Characters are valued 0-9 for digits and 10-35 for letters
// (with *, @ and # extending the space for PPNs); every second value is
// doubled and digit-summed before the modulo.

// IsValidCUSIP reports whether cusip is 9 characters and its final character
// matches the computed check digit.
func IsValidCUSIP(cusip string) bool {
	if len(cusip) != 9 {
		return false
	}
	check, ok := cusipCheckDigit(cusip[:8])
	if !ok {
		return false
	}
	return int(cusip[8]-'0') == check
}

func cusipCheckDigit(base string) (int, bool) {
	sum := 0
	for i := 0; i < len(base); i++ {
		c := base[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		case c == '*':
			v = 36
		case c == '@':
			v = 37
		case c == '#':
			v = 38
		default:
			return 0, false
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	return (10 - sum%10) % 10, true
}

// SuggestCUSIPCorrection produces the most likely intended identifier from a
// malformed one: separators stripped, uppercased, zero-padded or truncated to
// 9 characters. The caller decides whether the result actually checksums.
func SuggestCUSIPCorrection(cusip string) string {
	replacer := strings.NewReplacer(" ", "", "-", "")
	corrected := strings.ToUpper(replacer.Replace(cusip))
	if len(corrected) < 9 {
		corrected += strings.Repeat("0", 9-len(corrected))
	}
	if len(corrected) > 9 {
		corrected = corrected[:9]
	}
	return corrected
}
