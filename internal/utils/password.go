package utils

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePasswordStrength enforces the registration/reset policy:
// at least 8 characters with one uppercase letter, one lowercase letter
// and one digit. The returned error message is safe to show to clients.
func ValidatePasswordStrength(plain string) error {
	if len(plain) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !lower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !digit {
		return errors.New("password must contain at least one number")
	}
	return nil
}
