// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// createRetries bounds how many fresh ids are tried when an insert collides.
// A collision of a 256-bit random id indicates a broken entropy source, so
// hitting the bound is an internal error, not a normal outcome.
const createRetries = 3

// SessionStore drives the session state machine: absent, active, expired,
// rotated. It is the only component that creates, rotates, or deletes
// sessions.
type SessionStore struct {
	sessions SessionRepository
	users    UserDirectory
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(sessions SessionRepository, users UserDirectory) (*SessionStore, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("sessions repository is required")
	}
	if users == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("user directory is required")
	}
	return &SessionStore{sessions: sessions, users: users}, nil
}

// Create issues a new session for the user with the fixed absolute expiry
// horizon. An id collision is retried with a fresh id; ids are never reused.
func (s *SessionStore) Create(ctx context.Context, userID ulid.ULID) (*Session, error) {
	var session *Session

	backoff := retry.WithMaxRetries(createRetries, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := NewSessionID()
		if err != nil {
			return err
		}

		now := time.Now()
		candidate := &Session{
			ID:        id,
			UserID:    userID,
			ExpiresAt: now.Add(SessionLifetime),
			CreatedAt: now,
			Fresh:     true,
		}

		if err := s.sessions.Create(ctx, candidate); err != nil {
			if errors.Is(err, ErrIDCollision) {
				return retry.RetryableError(err)
			}
			return err
		}

		session = candidate
		return nil
	})
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return session, nil
}

// Validate looks up a session id and returns the owning user and the session.
//
// An expired session is deleted and reported absent; validating the same
// expired id twice is not an error. A session past the rotation threshold is
// transparently replaced with a new id and a fresh horizon; the returned
// session has Fresh set so the caller re-issues the cookie. A session whose
// user no longer exists or is deactivated is absent (fail closed).
//
// Absence is reported as an error wrapping ErrNotFound.
func (s *SessionStore) Validate(ctx context.Context, id string) (*User, *Session, error) {
	if id == "" {
		return nil, nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
		}
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by id").
			Wrap(err)
	}

	now := time.Now()
	if session.IsExpiredAt(now) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
				With("operation", "delete expired session").
				Wrap(err)
		}
		return nil, nil, oops.Code("SESSION_EXPIRED").Wrap(ErrNotFound)
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("SESSION_ORPHANED").Wrap(ErrNotFound)
		}
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session user").
			Wrap(err)
	}
	if !user.Active {
		return nil, nil, oops.Code("SESSION_USER_DEACTIVATED").Wrap(ErrNotFound)
	}

	if !session.staleAt(now) {
		return user, session, nil
	}

	// Past the rotation threshold: replace the id under a single transaction
	// so a concurrent rotation of the same id has exactly one winner.
	newID, err := NewSessionID()
	if err != nil {
		return nil, nil, oops.Code("SESSION_ROTATE_FAILED").Wrap(err)
	}
	replacement := &Session{
		ID:        newID,
		UserID:    session.UserID,
		ExpiresAt: now.Add(SessionLifetime),
		CreatedAt: now,
		Fresh:     true,
	}

	if err := s.sessions.Rotate(ctx, session.ID, replacement); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost a concurrent rotation; the old id is already gone.
			return nil, nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
		}
		return nil, nil, oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "rotate session").
			Wrap(err)
	}

	return user, replacement, nil
}

// Invalidate deletes the session unconditionally. Invalidating an absent
// session is not an error.
func (s *SessionStore) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return oops.Code("SESSION_INVALIDATE_FAILED").Wrap(err)
	}
	return nil
}

// InvalidateAll deletes every session owned by the user.
func (s *SessionStore) InvalidateAll(ctx context.Context, userID ulid.ULID) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("SESSION_INVALIDATE_ALL_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// Sweep deletes all sessions past expiry and returns the count. Expired
// sessions are also cleaned lazily during Validate; Sweep is an optional
// maintenance pass.
func (s *SessionStore) Sweep(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}
