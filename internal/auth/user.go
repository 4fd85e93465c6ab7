// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that start with a letter and contain only
// letters, numbers, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User represents an account in the directory. PasswordHash is opaque and is
// never serialized outward; it may be empty for accounts provisioned without
// local credentials.
type User struct {
	ID              ulid.ULID
	Username        string
	Email           string
	PasswordHash    string
	Role            Role
	RoleApplication Role
	Active          bool
	Verified        bool
	FirstName       string
	LastName        string
	CellNumber      *string
	LastLogin       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserDirectory provides read/write access to user records. Lookups by
// username and email are case-insensitive. Implementations enforce username
// and email uniqueness with storage-level constraints; Create surfaces a
// violated constraint as ErrUsernameTaken or ErrEmailTaken.
type UserDirectory interface {
	// FindByEmailCI retrieves a user by email, case-insensitively.
	// Returns ErrNotFound if no user has the given email.
	FindByEmailCI(ctx context.Context, email string) (*User, error)

	// FindByUsernameCI retrieves a user by username, case-insensitively.
	FindByUsernameCI(ctx context.Context, username string) (*User, error)

	// FindByID retrieves a user by id.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// Create persists a new user. The insert and its uniqueness constraints
	// commit atomically.
	Create(ctx context.Context, user *User) error

	// UpdateRole changes the active role and records an audit entry in the
	// same transaction. Partial application is not possible.
	UpdateRole(ctx context.Context, id ulid.ULID, role Role, actor string) error

	// UpdateLastLogin records the time of the latest successful login.
	UpdateLastLogin(ctx context.Context, id ulid.ULID, at time.Time) error

	// UpdateActive flips the account's active flag.
	UpdateActive(ctx context.Context, id ulid.ULID, active bool) error
}

// ValidateUsername validates a username against the registration rules.
func ValidateUsername(username string) string {
	if len(username) < MinUsernameLength {
		return "username must be at least 3 characters"
	}
	if len(username) > MaxUsernameLength {
		return "username must be at most 30 characters"
	}
	if !usernameRegex.MatchString(username) {
		return "username must start with a letter and contain only letters, numbers, and underscores"
	}
	return ""
}
