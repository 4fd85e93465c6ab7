// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"regexp"
	"unicode"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// emailRegex is a pragmatic shape check; deliverability is not verified here.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidatePassword checks the password complexity policy: minimum length and
// at least one character from each of the upper, lower, digit, and symbol
// classes. Returns an empty string when the password is acceptable.
func ValidatePassword(password string) string {
	if len(password) < MinPasswordLength {
		return "password must be at least 8 characters"
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	switch {
	case !upper:
		return "password must contain at least one uppercase letter"
	case !lower:
		return "password must contain at least one lowercase letter"
	case !digit:
		return "password must contain at least one number"
	case !symbol:
		return "password must contain at least one special character"
	}
	return ""
}

// ValidateEmail checks the email address shape. Returns an empty string when
// acceptable.
func ValidateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return "please enter a valid email address"
	}
	return ""
}

// validateRegisterInput applies all field-level checks before any persistence
// access. The returned map is keyed by field name and empty when the input is
// acceptable.
func validateRegisterInput(in RegisterInput) map[string]string {
	fieldErrors := make(map[string]string)

	if msg := ValidateUsername(in.Username); msg != "" {
		fieldErrors["username"] = msg
	}
	if msg := ValidateEmail(in.Email); msg != "" {
		fieldErrors["email"] = msg
	}
	if msg := ValidatePassword(in.Password); msg != "" {
		fieldErrors["password"] = msg
	}
	if in.Password != in.ConfirmPassword {
		fieldErrors["confirmPassword"] = "passwords don't match"
	}
	if !in.RoleApplication.IsValid() || in.RoleApplication == RoleUnapproved {
		fieldErrors["roleApplication"] = "please select the role you are applying for"
	}
	if !in.AgreeTerms {
		fieldErrors["agreeTerms"] = "you must agree to the terms and conditions"
	}

	return fieldErrors
}
