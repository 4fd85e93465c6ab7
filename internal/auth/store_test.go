// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/permitgate/permitgate/internal/auth"
	"github.com/permitgate/permitgate/internal/auth/authtest"
)

func newStoreFixture(t *testing.T) (*auth.SessionStore, *authtest.MemorySessionRepository, *authtest.MemoryUserDirectory, *auth.User) {
	t.Helper()

	sessions := authtest.NewMemorySessionRepository()
	users := authtest.NewMemoryUserDirectory()

	user := &auth.User{
		ID:       ulid.Make(),
		Username: "thandi",
		Email:    "thandi@example.com",
		Role:     auth.RoleSkipper,
		Active:   true,
	}
	users.Add(user)

	store, err := auth.NewSessionStore(sessions, users)
	require.NoError(t, err)
	return store, sessions, users, user
}

func TestNewSessionStore_RequiresDependencies(t *testing.T) {
	_, err := auth.NewSessionStore(nil, authtest.NewMemoryUserDirectory())
	require.Error(t, err)

	_, err = auth.NewSessionStore(authtest.NewMemorySessionRepository(), nil)
	require.Error(t, err)
}

func TestSessionStore_Create(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	ctx := context.Background()

	session, err := store.Create(ctx, user.ID)
	require.NoError(t, err)

	assert.Len(t, session.ID, auth.SessionIDBytes*2)
	assert.Equal(t, user.ID, session.UserID)
	assert.True(t, session.Fresh, "a new session signals a cookie issue")
	assert.WithinDuration(t, time.Now().Add(auth.SessionLifetime), session.ExpiresAt, time.Minute)
	assert.True(t, sessions.Has(session.ID))
}

func TestSessionStore_Create_RetriesIDCollision(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	sessions.CreateCollisions = 2

	session, err := store.Create(context.Background(), user.ID)
	require.NoError(t, err, "collisions within the retry budget succeed with a fresh id")
	assert.True(t, sessions.Has(session.ID))
}

func TestSessionStore_Create_GivesUpAfterRetryBudget(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	sessions.CreateCollisions = 10

	_, err := store.Create(context.Background(), user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrIDCollision)
}

func TestSessionStore_Validate_Active(t *testing.T) {
	store, _, _, user := newStoreFixture(t)
	ctx := context.Background()

	created, err := store.Create(ctx, user.ID)
	require.NoError(t, err)

	gotUser, gotSession, err := store.Validate(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Equal(t, created.ID, gotSession.ID)
	assert.False(t, gotSession.Fresh, "an unrotated session does not re-issue the cookie")
}

func TestSessionStore_Validate_EmptyID(t *testing.T) {
	store, _, _, _ := newStoreFixture(t)

	_, _, err := store.Validate(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_Validate_UnknownID(t *testing.T) {
	store, _, _, _ := newStoreFixture(t)

	_, _, err := store.Validate(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_Validate_ExpiredSessionIsDeleted(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	ctx := context.Background()

	expired := &auth.Session{
		ID:        "expired-session-id",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-auth.SessionLifetime - time.Hour),
	}
	sessions.Add(expired)

	_, _, err := store.Validate(ctx, expired.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.False(t, sessions.Has(expired.ID), "expired session is deleted on validation")

	// Validating the same expired id again is still just absent.
	_, _, err = store.Validate(ctx, expired.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_Validate_RotatesStaleSession(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	ctx := context.Background()

	stale := &auth.Session{
		ID:        "stale-session-id",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(auth.SessionLifetime - auth.RotateAfter - time.Hour),
		CreatedAt: time.Now().Add(-auth.RotateAfter - time.Hour),
	}
	sessions.Add(stale)

	gotUser, gotSession, err := store.Validate(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotUser.ID)

	assert.NotEqual(t, stale.ID, gotSession.ID, "rotation issues a new id")
	assert.True(t, gotSession.Fresh, "rotated session signals a cookie re-issue")
	assert.WithinDuration(t, time.Now().Add(auth.SessionLifetime), gotSession.ExpiresAt, time.Minute)

	assert.False(t, sessions.Has(stale.ID), "old id is gone after rotation")
	assert.True(t, sessions.Has(gotSession.ID))

	// The retired id no longer validates.
	_, _, err = store.Validate(ctx, stale.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_Validate_ConcurrentRotationHasOneWinner(t *testing.T) {
	defer goleak.VerifyNone(t)

	store, sessions, _, user := newStoreFixture(t)
	ctx := context.Background()

	stale := &auth.Session{
		ID:        "contended-session-id",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(auth.SessionLifetime / 2),
		CreatedAt: time.Now().Add(-auth.RotateAfter - time.Hour),
	}
	sessions.Add(stale)

	const workers = 8
	var wg sync.WaitGroup
	winners := make(chan *auth.Session, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, session, err := store.Validate(ctx, stale.ID)
			if err == nil {
				winners <- session
			} else {
				assert.ErrorIs(t, err, auth.ErrNotFound, "losers observe an absent session")
			}
		}()
	}
	wg.Wait()
	close(winners)

	var won []*auth.Session
	for s := range winners {
		won = append(won, s)
	}
	require.Len(t, won, 1, "exactly one validation wins the rotation")
	assert.Equal(t, 1, sessions.Len())
	assert.True(t, sessions.Has(won[0].ID))
}

func TestSessionStore_Validate_OrphanedSession(t *testing.T) {
	store, sessions, _, _ := newStoreFixture(t)

	orphan := &auth.Session{
		ID:        "orphan-session-id",
		UserID:    ulid.Make(),
		ExpiresAt: time.Now().Add(auth.SessionLifetime),
		CreatedAt: time.Now(),
	}
	sessions.Add(orphan)

	_, _, err := store.Validate(context.Background(), orphan.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_Validate_DeactivatedUser(t *testing.T) {
	store, _, users, user := newStoreFixture(t)
	ctx := context.Background()

	session, err := store.Create(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, users.UpdateActive(ctx, user.ID, false))

	_, _, err = store.Validate(ctx, session.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound, "a deactivated account fails closed")
}

func TestSessionStore_Validate_RepositoryFailure(t *testing.T) {
	store, sessions, _, _ := newStoreFixture(t)
	sessions.ForcedErr = errors.New("connection refused")

	_, _, err := store.Validate(context.Background(), "any-id")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotFound, "infrastructure failure is not reported as absence")
}

func TestSessionStore_Invalidate(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	ctx := context.Background()

	session, err := store.Create(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(ctx, session.ID))
	assert.False(t, sessions.Has(session.ID))

	// Idempotent: a second invalidation of the same id succeeds.
	require.NoError(t, store.Invalidate(ctx, session.ID))
	require.NoError(t, store.Invalidate(ctx, ""))
}

func TestSessionStore_InvalidateAll(t *testing.T) {
	store, sessions, users, user := newStoreFixture(t)
	ctx := context.Background()

	other := &auth.User{ID: ulid.Make(), Username: "sipho", Email: "sipho@example.com", Role: auth.RoleDriver, Active: true}
	users.Add(other)

	_, err := store.Create(ctx, user.ID)
	require.NoError(t, err)
	_, err = store.Create(ctx, user.ID)
	require.NoError(t, err)
	kept, err := store.Create(ctx, other.ID)
	require.NoError(t, err)

	require.NoError(t, store.InvalidateAll(ctx, user.ID))

	assert.Equal(t, 1, sessions.Len(), "only the other user's session survives")
	assert.True(t, sessions.Has(kept.ID))
}

func TestSessionStore_Sweep(t *testing.T) {
	store, sessions, _, user := newStoreFixture(t)
	ctx := context.Background()

	live, err := store.Create(ctx, user.ID)
	require.NoError(t, err)

	for i, id := range []string{"dead-1", "dead-2"} {
		sessions.Add(&auth.Session{
			ID:        id,
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(-time.Duration(i+1) * time.Hour),
			CreatedAt: time.Now().Add(-auth.SessionLifetime),
		})
	}

	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, sessions.Has(live.ID))
	assert.Equal(t, 1, sessions.Len())
}
