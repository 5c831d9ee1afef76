package auth

import (
	"errors"
	"regexp"
)

// ValidatePasswordStrength checks password complexity.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	var (
		hasUpper   = regexp.MustCompile(`[A-Z]`).MatchString
		hasLower   = regexp.MustCompile(`[a-z]`).MatchString
		hasNumber  = regexp.MustCompile(`[0-9]`).MatchString
		hasSpecial = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>_\-+=]`).MatchString
	)

	checks := 0
	if hasUpper(password) {
		checks++
	}
	if hasLower(password) {
		checks++
	}
	if hasNumber(password) {
		checks++
	}
	if hasSpecial(password) {
		checks++
	}

	if checks < 2 {
		return errors.New("password must contain at least 2 of: uppercase, lowercase, numbers, special characters")
	}

	return nil
}
