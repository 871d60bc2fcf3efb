// Package validation holds the input rules shared by the REST and GraphQL surfaces.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTextLength is the shortest accepted post title or content.
const MinTextLength = 5

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 5

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

// ValidatePassword enforces the password length bounds.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	// bcrypt ignores everything after 72 bytes.
	if len(password) > 72 {
		return fmt.Errorf("password must not exceed 72 bytes")
	}
	return nil
}

// ValidateText checks that value is non-blank and at least MinTextLength characters after trimming.
func ValidateText(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("must not be empty")
	}
	if utf8.RuneCountInString(trimmed) < MinTextLength {
		return fmt.Errorf("must be at least %d characters long", MinTextLength)
	}
	return nil
}
