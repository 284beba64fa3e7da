package types

import (
	"strings"
	"unicode"
)

// MinPhoneDigits is the shortest accepted contact number.
const MinPhoneDigits = 10

// PhoneDigits counts the decimal digits in a free-form phone number.
func PhoneDigits(value string) int {
	n := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// ValidPhone reports whether value carries at least MinPhoneDigits digits and
// nothing but digits, spaces, dashes, dots, parentheses and a leading plus.
func ValidPhone(value string) bool {
	trimmed := strings.TrimSpace(value)
	for i, r := range trimmed {
		switch {
		case unicode.IsDigit(r), r == ' ', r == '-', r == '.', r == '(', r == ')':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	return PhoneDigits(trimmed) >= MinPhoneDigits
}
