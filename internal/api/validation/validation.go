package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxNameLength   = 100
	MinPasswordLen  = 8
	MaxPasswordLen  = 128
	MaxSearchLength = 100
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPassword requires 8 to 128 characters with at least one letter and
// one digit.
func IsValidPassword(password string) (bool, string) {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen {
		return false, "Password must be at least 8 characters"
	}
	if n > MaxPasswordLen {
		return false, "Password must be at most 128 characters"
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasLetter {
		return false, "Password must contain at least one letter"
	}
	if !hasNumber {
		return false, "Password must contain at least one number"
	}
	return true, ""
}

// ValidateName returns an error message for a required display name, or "".
func ValidateName(field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return field + " is required"
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return field + " must be at most 100 characters"
	}
	return ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// TruncateString cuts s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
