// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

// Package auth provides credential verification, session lifecycle
// management, and role-based access gating for PermitGate.
//
// # Domain Types
//
// Domain types (User, Session) should be created through the services that
// own them:
//   - Gateway.Register - creates a User with validated input and a hashed password
//   - SessionStore.Create - creates a Session with a random id and fixed expiry
//
// Sessions are exclusively owned by the SessionStore; callers never construct
// or mutate them directly.
//
// # Services
//
// Service types coordinate domain operations:
//   - Gateway - login, registration, logout
//   - SessionStore - session creation, validation, rotation, invalidation
//
// Services are created with New* constructors that validate dependencies.
package auth
