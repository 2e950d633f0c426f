package security

import (
	"errors"
	"regexp"
	"strings"
)

const minPasswordLength = 8

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordWeak     = errors.New("password needs at least 8 characters, a number and a special character")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// CheckPassword enforces the account password policy. A special character
// is anything outside ASCII letters and digits.
func CheckPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}
	if len([]rune(password)) < minPasswordLength {
		return ErrPasswordWeak
	}

	var hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		default:
			hasSpecial = true
		}
	}
	if !hasDigit || !hasSpecial {
		return ErrPasswordWeak
	}
	return nil
}

// CheckNewPassword is CheckPassword plus the confirmation field.
func CheckNewPassword(password, confirm string) error {
	if err := CheckPassword(password); err != nil {
		return err
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// AllDigits reports whether s is a non-empty run of ASCII digits.
func AllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
