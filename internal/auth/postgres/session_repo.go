// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/permitgate/permitgate/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool db
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool db) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create persists a new session. A primary-key collision surfaces as
// auth.ErrIDCollision so the caller can regenerate and retry.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, session.ID, session.UserID.String(), session.ExpiresAt, session.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("SESSION_CREATE_COLLISION").Wrap(auth.ErrIDCollision)
		}
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by id. The caller decides whether the session
// is expired or due for rotation.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*auth.Session, error) {
	var (
		userIDStr string
		expiresAt time.Time
		createdAt time.Time
	)

	err := r.pool.QueryRow(ctx, `
		SELECT user_id, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&userIDStr, &expiresAt, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by id").
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("operation", "parse session user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &auth.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Rotate atomically replaces the session oldID with replacement. The delete
// and insert share one transaction, so a concurrent rotation of the same
// session leaves exactly one winner; the loser gets auth.ErrNotFound.
func (r *SessionRepository) Rotate(ctx context.Context, oldID string, replacement *auth.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, oldID)
	if err != nil {
		return oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "delete old session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		// Already rotated, expired, or invalidated by someone else.
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, replacement.ID, replacement.UserID.String(), replacement.ExpiresAt, replacement.CreatedAt)
	if err != nil {
		return oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "insert replacement session").
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes every session belonging to a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry and reports how many
// were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= NOW()
	`)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
