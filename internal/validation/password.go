package validation

import (
	"regexp"
	"unicode"
)

var phoneRegex = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

// IsStrongPassword requires 8-72 characters with an upper case letter, a
// lower case letter and a digit.
func IsStrongPassword(s string) bool {
	if len(s) < MinPasswordLength || len(s) > MaxPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// IsPhone accepts E.164-style numbers, with or without the leading plus.
func IsPhone(s string) bool {
	return phoneRegex.MatchString(s)
}
