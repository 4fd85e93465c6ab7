// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/permitgate/permitgate/pkg/errutil"
)

// dummyPasswordDigest is verified when the email is unknown or the account
// has no stored digest, so response timing does not distinguish "unknown
// email" from "wrong password". Same cost parameters as real digests.
// This is NOT a real credential - it's a fake digest that will never match
// any password.
//
//nolint:gosec // G101: intentionally fake digest for timing attack prevention, not a credential.
const dummyPasswordDigest = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginOutcome is the typed result of a login attempt.
type LoginOutcome string

// Login outcomes. Credential failures are deliberately indistinguishable;
// post-identification states (deactivated, pending) are distinct.
const (
	LoginSuccess            LoginOutcome = "success"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginAccountDeactivated LoginOutcome = "account_deactivated"
	LoginPendingApproval    LoginOutcome = "pending_approval"
	LoginInternalError      LoginOutcome = "internal_error"
)

// LoginResult carries the outcome of a login attempt. Session and
// RedirectPath are set only on LoginSuccess.
type LoginResult struct {
	Outcome      LoginOutcome
	RedirectPath string
	Session      *Session
	User         *User
}

// RegisterOutcome is the typed result of a registration attempt.
type RegisterOutcome string

// Registration outcomes.
const (
	RegisterSuccess         RegisterOutcome = "success"
	RegisterUsernameTaken   RegisterOutcome = "username_taken"
	RegisterEmailTaken      RegisterOutcome = "email_taken"
	RegisterValidationError RegisterOutcome = "validation_error"
	RegisterInternalError   RegisterOutcome = "internal_error"
)

// RegisterInput is the raw registration form input.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	RoleApplication Role
	FirstName       string
	LastName        string
	AgreeTerms      bool
}

// RegisterResult carries the outcome of a registration attempt. FieldErrors
// is set only on RegisterValidationError.
type RegisterResult struct {
	Outcome     RegisterOutcome
	FieldErrors map[string]string
	User        *User
}

// Gateway orchestrates login and registration: it validates input, consults
// the password hasher and user directory, and drives the session store. Every
// failure category is returned as a typed outcome; internal detail is logged
// server-side and never surfaced to the caller.
type Gateway struct {
	users    UserDirectory
	sessions *SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(users UserDirectory, sessions *SessionStore, hasher PasswordHasher, logger *slog.Logger) (*Gateway, error) {
	if users == nil {
		return nil, oops.Code("GATEWAY_INVALID").Errorf("user directory is required")
	}
	if sessions == nil {
		return nil, oops.Code("GATEWAY_INVALID").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("GATEWAY_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{users: users, sessions: sessions, hasher: hasher, logger: logger}, nil
}

// Login authenticates an email/password pair and, on success, creates a
// session and returns the role's landing route.
//
// Verification always runs, against a dummy digest when no real one is
// available, so that "unknown email", "no local credentials", and "wrong
// password" all return the identical outcome with comparable latency.
func (g *Gateway) Login(ctx context.Context, email, password string) LoginResult {
	user, lookupErr := g.users.FindByEmailCI(ctx, email)

	digest := dummyPasswordDigest
	known := false

	switch {
	case lookupErr == nil:
		if user.PasswordHash != "" {
			digest = user.PasswordHash
			known = true
		}
	case errors.Is(lookupErr, ErrNotFound):
		// keep the dummy digest
	default:
		errutil.LogError(g.logger, "login: user lookup failed", lookupErr)
		return LoginResult{Outcome: LoginInternalError}
	}

	valid, verifyErr := g.hasher.Verify(password, digest)
	if verifyErr != nil {
		// A corrupt stored digest must look exactly like a wrong password.
		errutil.LogError(g.logger, "login: digest verification error", verifyErr)
		valid = false
	}

	if !known || !valid {
		return LoginResult{Outcome: LoginInvalidCredentials}
	}

	if !user.Active {
		return LoginResult{Outcome: LoginAccountDeactivated}
	}

	if user.Role == RoleUnapproved {
		// Pending approval never yields a session.
		return LoginResult{Outcome: LoginPendingApproval}
	}

	session, err := g.sessions.Create(ctx, user.ID)
	if err != nil {
		errutil.LogError(g.logger, "login: session creation failed", err)
		return LoginResult{Outcome: LoginInternalError}
	}

	// Best effort: login succeeds even if the timestamp update fails.
	if err := g.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		errutil.LogError(g.logger, "login: last-login update failed", err)
	}

	return LoginResult{
		Outcome:      LoginSuccess,
		RedirectPath: LandingRoute(user.Role),
		Session:      session,
		User:         user,
	}
}

// Register validates the input, checks uniqueness, hashes the password, and
// creates the user with the active role fixed to UNAPPROVED and the requested
// role stored as the pending role application. No session is issued.
//
// The pre-checks are a fast-path UX optimization; the insert's uniqueness
// constraints are the authoritative guard, and a constraint violation on
// commit maps back to the matching "taken" outcome.
func (g *Gateway) Register(ctx context.Context, in RegisterInput) RegisterResult {
	if fieldErrors := validateRegisterInput(in); len(fieldErrors) > 0 {
		return RegisterResult{Outcome: RegisterValidationError, FieldErrors: fieldErrors}
	}

	if _, err := g.users.FindByUsernameCI(ctx, in.Username); err == nil {
		return RegisterResult{Outcome: RegisterUsernameTaken}
	} else if !errors.Is(err, ErrNotFound) {
		errutil.LogError(g.logger, "register: username lookup failed", err)
		return RegisterResult{Outcome: RegisterInternalError}
	}

	if _, err := g.users.FindByEmailCI(ctx, in.Email); err == nil {
		return RegisterResult{Outcome: RegisterEmailTaken}
	} else if !errors.Is(err, ErrNotFound) {
		errutil.LogError(g.logger, "register: email lookup failed", err)
		return RegisterResult{Outcome: RegisterInternalError}
	}

	digest, err := g.hasher.Hash(in.Password)
	if err != nil {
		errutil.LogError(g.logger, "register: password hashing failed", err)
		return RegisterResult{Outcome: RegisterInternalError}
	}

	now := time.Now()
	user := &User{
		ID:              ulid.Make(),
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    digest,
		Role:            RoleUnapproved,
		RoleApplication: in.RoleApplication,
		Active:          true,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := g.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			return RegisterResult{Outcome: RegisterUsernameTaken}
		case errors.Is(err, ErrEmailTaken):
			return RegisterResult{Outcome: RegisterEmailTaken}
		default:
			errutil.LogError(g.logger, "register: user creation failed", err)
			return RegisterResult{Outcome: RegisterInternalError}
		}
	}

	return RegisterResult{Outcome: RegisterSuccess, User: user}
}

// Logout invalidates the session. Logging out an absent session is not an
// error; the caller clears the cookie either way.
func (g *Gateway) Logout(ctx context.Context, sessionID string) error {
	if err := g.sessions.Invalidate(ctx, sessionID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "invalidate session").
			Wrap(err)
	}
	return nil
}
