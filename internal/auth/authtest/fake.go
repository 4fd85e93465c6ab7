// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

// Package authtest provides in-memory fakes for auth persistence interfaces.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/permitgate/permitgate/internal/auth"
)

// MemoryUserDirectory is an in-memory UserDirectory with case-insensitive
// username and email uniqueness, matching the database schema.
type MemoryUserDirectory struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User

	// ForcedErr, when set, is returned by every operation.
	ForcedErr error

	// RoleChanges records (actor, new role) pairs from UpdateRole calls.
	RoleChanges []RoleChange
}

// RoleChange is one recorded UpdateRole call.
type RoleChange struct {
	UserID ulid.ULID
	Role   auth.Role
	Actor  string
}

// NewMemoryUserDirectory creates an empty directory.
func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{users: make(map[ulid.ULID]*auth.User)}
}

// Add inserts a user directly, bypassing uniqueness checks.
func (d *MemoryUserDirectory) Add(user *auth.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := *user
	d.users[user.ID] = &clone
}

// FindByEmailCI implements auth.UserDirectory.
func (d *MemoryUserDirectory) FindByEmailCI(_ context.Context, email string) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return nil, d.ForcedErr
	}
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

// FindByUsernameCI implements auth.UserDirectory.
func (d *MemoryUserDirectory) FindByUsernameCI(_ context.Context, username string) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return nil, d.ForcedErr
	}
	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

// FindByID implements auth.UserDirectory.
func (d *MemoryUserDirectory) FindByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return nil, d.ForcedErr
	}
	u, ok := d.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

// Create implements auth.UserDirectory.
func (d *MemoryUserDirectory) Create(_ context.Context, user *auth.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return d.ForcedErr
	}
	for _, u := range d.users {
		if strings.EqualFold(u.Username, user.Username) {
			return auth.ErrUsernameTaken
		}
		if strings.EqualFold(u.Email, user.Email) {
			return auth.ErrEmailTaken
		}
	}
	clone := *user
	d.users[user.ID] = &clone
	return nil
}

// UpdateRole implements auth.UserDirectory.
func (d *MemoryUserDirectory) UpdateRole(_ context.Context, id ulid.ULID, role auth.Role, actor string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return d.ForcedErr
	}
	u, ok := d.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Role = role
	d.RoleChanges = append(d.RoleChanges, RoleChange{UserID: id, Role: role, Actor: actor})
	return nil
}

// UpdateLastLogin implements auth.UserDirectory.
func (d *MemoryUserDirectory) UpdateLastLogin(_ context.Context, id ulid.ULID, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return d.ForcedErr
	}
	u, ok := d.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	t := at
	u.LastLogin = &t
	return nil
}

// UpdateActive implements auth.UserDirectory.
func (d *MemoryUserDirectory) UpdateActive(_ context.Context, id ulid.ULID, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ForcedErr != nil {
		return d.ForcedErr
	}
	u, ok := d.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Active = active
	return nil
}

// Get returns the stored user, or nil.
func (d *MemoryUserDirectory) Get(id ulid.ULID) *auth.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil
	}
	clone := *u
	return &clone
}

// MemorySessionRepository is an in-memory SessionRepository with atomic
// rotation semantics.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session

	// ForcedErr, when set, is returned by every operation.
	ForcedErr error

	// CreateCollisions fails that many Create calls with ErrIDCollision
	// before letting one through.
	CreateCollisions int
}

// NewMemorySessionRepository creates an empty repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*auth.Session)}
}

// Add inserts a session directly.
func (r *MemorySessionRepository) Add(session *auth.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions[session.ID] = &clone
}

// Create implements auth.SessionRepository.
func (r *MemorySessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForcedErr != nil {
		return r.ForcedErr
	}
	if r.CreateCollisions > 0 {
		r.CreateCollisions--
		return auth.ErrIDCollision
	}
	if _, exists := r.sessions[session.ID]; exists {
		return auth.ErrIDCollision
	}
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

// GetByID implements auth.SessionRepository.
func (r *MemorySessionRepository) GetByID(_ context.Context, id string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForcedErr != nil {
		return nil, r.ForcedErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *s
	clone.Fresh = false
	return &clone, nil
}

// Rotate implements auth.SessionRepository.
func (r *MemorySessionRepository) Rotate(_ context.Context, oldID string, replacement *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForcedErr != nil {
		return r.ForcedErr
	}
	if _, ok := r.sessions[oldID]; !ok {
		return auth.ErrNotFound
	}
	delete(r.sessions, oldID)
	clone := *replacement
	r.sessions[replacement.ID] = &clone
	return nil
}

// Delete implements auth.SessionRepository.
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForcedErr != nil {
		return r.ForcedErr
	}
	delete(r.sessions, id)
	return nil
}

// DeleteByUser implements auth.SessionRepository.
func (r *MemorySessionRepository) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForcedErr != nil {
		return r.ForcedErr
	}
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// DeleteExpired implements auth.SessionRepository.
func (r *MemorySessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForcedErr != nil {
		return 0, r.ForcedErr
	}
	now := time.Now()
	var n int64
	for id, s := range r.sessions {
		if s.IsExpiredAt(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Has reports whether a session id is stored.
func (r *MemorySessionRepository) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// Verify interfaces are satisfied.
var (
	_ auth.UserDirectory     = (*MemoryUserDirectory)(nil)
	_ auth.SessionRepository = (*MemorySessionRepository)(nil)
)
