// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when a username is already in use,
// compared case-insensitively.
var ErrUsernameTaken = errors.New("username taken")

// ErrEmailTaken is returned when an email is already in use,
// compared case-insensitively.
var ErrEmailTaken = errors.New("email taken")
