package util

import (
	"errors"
	"net/mail"
	"strings"
)

const gabonPrefix = "+241"

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidPhone = errors.New("invalid Gabonese phone number")
)

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizePhone returns a Gabonese number as +241 followed by its eight
// subscriber digits. Accepted inputs: "+241 77 12 34 56", "0024177123456",
// "24177123456", "077123456" and "77123456", with any spaces, dots or dashes.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '.' || r == '-' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "00241"):
		digits = digits[5:]
	case strings.HasPrefix(digits, "241") && len(digits) == 11:
		digits = digits[3:]
	case strings.HasPrefix(digits, "0") && len(digits) == 9:
		digits = digits[1:]
	}

	if len(digits) != 8 {
		return "", ErrInvalidPhone
	}
	return gabonPrefix + digits, nil
}

// IsVerificationCode reports whether code is exactly six ASCII digits
func IsVerificationCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
