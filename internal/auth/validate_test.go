// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"acceptable", "Str0ng!pass", ""},
		{"too short", "S1!a", "password must be at least 8 characters"},
		{"missing uppercase", "weak1pass!", "password must contain at least one uppercase letter"},
		{"missing lowercase", "WEAK1PASS!", "password must contain at least one lowercase letter"},
		{"missing digit", "Weakpass!", "password must contain at least one number"},
		{"missing symbol", "Weak1pass", "password must contain at least one special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, ValidatePassword(tt.password))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		wantOK bool
	}{
		{"plain address", "skipper@example.com", true},
		{"subdomain", "a.b@mail.example.co.za", true},
		{"empty", "", false},
		{"no at sign", "skipper.example.com", false},
		{"no domain dot", "skipper@example", false},
		{"embedded space", "skip per@example.com", false},
		{"double at", "skipper@@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidateEmail(tt.email)
			if tt.wantOK {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantOK   bool
	}{
		{"simple", "thandi", true},
		{"with digits and underscore", "skipper_42", true},
		{"minimum length", "abc", true},
		{"too short", "ab", false},
		{"starts with digit", "1thandi", false},
		{"starts with underscore", "_thandi", false},
		{"illegal character", "than di", false},
		{"too long", "a234567890123456789012345678901", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidateUsername(tt.username)
			if tt.wantOK {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidateRegisterInput(t *testing.T) {
	valid := RegisterInput{
		Username:        "thandi",
		Email:           "thandi@example.com",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
		RoleApplication: RoleSkipper,
		AgreeTerms:      true,
	}

	t.Run("valid input has no field errors", func(t *testing.T) {
		assert.Empty(t, validateRegisterInput(valid))
	})

	t.Run("each failing field is reported under its own key", func(t *testing.T) {
		in := RegisterInput{
			Username:        "x",
			Email:           "not-an-email",
			Password:        "weak",
			ConfirmPassword: "different",
			RoleApplication: Role("NOT_A_ROLE"),
			AgreeTerms:      false,
		}

		fieldErrors := validateRegisterInput(in)
		for _, key := range []string{
			"username", "email", "password", "confirmPassword", "roleApplication", "agreeTerms",
		} {
			assert.Contains(t, fieldErrors, key)
		}
	})

	t.Run("applying for the unapproved role is rejected", func(t *testing.T) {
		in := valid
		in.RoleApplication = RoleUnapproved

		fieldErrors := validateRegisterInput(in)
		assert.Contains(t, fieldErrors, "roleApplication")
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		in := valid
		in.ConfirmPassword = "Str0ng!pass2"

		fieldErrors := validateRegisterInput(in)
		assert.Equal(t, map[string]string{"confirmPassword": "passwords don't match"}, fieldErrors)
	})
}
