// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session lifetime configuration.
const (
	// SessionIDBytes is the entropy of a session id (64 hex chars on the wire).
	SessionIDBytes = 32

	// SessionLifetime is the absolute expiry horizon. There is no sliding
	// idle timeout; rotation re-issues a fresh horizon instead.
	SessionLifetime = 30 * 24 * time.Hour

	// RotateAfter is how much of the lifetime may elapse before validation
	// transparently rotates the session to a new id.
	RotateAfter = SessionLifetime / 2
)

// Session is an authentication token record. The id doubles as the bearer
// token presented in the session cookie. A Session belongs to exactly one
// user and is owned by the SessionStore; callers never construct one.
type Session struct {
	ID        string
	UserID    ulid.ULID
	ExpiresAt time.Time
	CreatedAt time.Time

	// Fresh is derived, not persisted: true when the session was just
	// created or rotated, signalling the caller to re-issue the cookie.
	Fresh bool
}

// IsExpiredAt reports whether the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// staleAt reports whether the rotation threshold has been crossed at t.
func (s *Session) staleAt(t time.Time) bool {
	return t.Sub(s.CreatedAt) > RotateAfter
}

// NewSessionID generates a cryptographically random, collision-resistant
// session id.
func NewSessionID() (string, error) {
	buf := make([]byte, SessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionIDBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// SessionRepository manages session persistence. Implementations must make
// Rotate atomic: concurrent rotations of the same id resolve to exactly one
// winner, with losers observing ErrNotFound.
type SessionRepository interface {
	// Create stores a new session. A duplicate id fails with ErrIDCollision.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Session, error)

	// Rotate atomically deletes the session with oldID and inserts the
	// replacement. Returns ErrNotFound if oldID is already gone, leaving
	// the winning rotation untouched.
	Rotate(ctx context.Context, oldID string, replacement *Session) error

	// Delete removes a session by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes all sessions for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}

// ErrIDCollision is returned by SessionRepository.Create when the generated
// id already exists. The store retries with a fresh id; an id is never reused.
var ErrIDCollision = oops.Code("SESSION_ID_COLLISION").Errorf("session id already exists")
