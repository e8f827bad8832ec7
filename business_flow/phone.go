package businessflow

import (
	"strings"

	"github.com/amirphl/flashcall-auth/utils"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// Characters users commonly type between digit groups
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "/", "")

// NormalizePhoneNumber returns the canonical "+<digits>" form of an E.164 number.
// Separators are stripped; any other non-digit, or a missing leading '+', is rejected.
func NormalizePhoneNumber(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if !strings.HasPrefix(phone, "+") {
		return "", ErrInvalidPhoneFormat
	}

	digits := phoneSeparators.Replace(phone[1:])
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", ErrInvalidPhoneFormat
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneFormat
		}
	}
	return "+" + digits, nil
}

// ContainsOnlyPhoneChars reports whether s uses only digits, '+' and separators
func ContainsOnlyPhoneChars(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '+', r == ' ', r == '-', r == '(', r == ')', r == '.', r == '/':
		default:
			return false
		}
	}
	return true
}

// MaskPhoneNumber hides the middle digits for logs: +15551234567 -> +1555***4567
func MaskPhoneNumber(phone string) string {
	return utils.MaskPhone(phone)
}
