// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

// Package postgres implements the auth persistence interfaces on PostgreSQL.
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

// Unique index names from the schema; used to map constraint violations back
// to the field that conflicted.
const (
	usernameConstraint = "users_username_ci_key"
	emailConstraint    = "users_email_ci_key"
)

// db abstracts the pgx pool so repositories can be tested with pgxmock.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository implements auth.UserDirectory using PostgreSQL.
type UserRepository struct {
	pool db
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool db) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, role_application,
	       active, verified, first_name, last_name, cell_number,
	       last_login, created_at, updated_at`

// FindByEmailCI retrieves a user by email (case-insensitive).
func (r *UserRepository) FindByEmailCI(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// FindByUsernameCI retrieves a user by username (case-insensitive).
func (r *UserRepository) FindByUsernameCI(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// FindByID retrieves a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// Create persists a new user. The unique indexes on LOWER(username) and
// LOWER(email) are the authoritative uniqueness guard: a violation surfaces
// as auth.ErrUsernameTaken or auth.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, role, role_application,
			active, verified, first_name, last_name, cell_number,
			last_login, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		string(user.RoleApplication),
		user.Active,
		user.Verified,
		user.FirstName,
		user.LastName,
		user.CellNumber,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if taken := takenError(err); taken != nil {
			return taken
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// UpdateRole changes the active role and writes the audit record in the same
// transaction. Either both land or neither does.
func (r *UserRepository) UpdateRole(ctx context.Context, id ulid.ULID, role auth.Role, actor string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("USER_UPDATE_ROLE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var oldRole string
	err = tx.QueryRow(ctx, `
		SELECT role FROM users WHERE id = $1 FOR UPDATE
	`, id.String()).Scan(&oldRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("USER_UPDATE_ROLE_FAILED").
			With("operation", "lock user row").
			With("id", id.String()).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), string(role), time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_ROLE_FAILED").
			With("operation", "update role").
			With("id", id.String()).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_log (id, actor, subject_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, 'role_change', $4, $5, $6)
	`, ulid.Make().String(), actor, id.String(), oldRole, string(role), time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_ROLE_FAILED").
			With("operation", "insert audit record").
			With("id", id.String()).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("USER_UPDATE_ROLE_FAILED").
			With("operation", "commit transaction").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// UpdateLastLogin records the time of the latest successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET last_login = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), at, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_LAST_LOGIN_FAILED").
			With("operation", "update last_login").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateActive flips the account's active flag.
func (r *UserRepository) UpdateActive(ctx context.Context, id ulid.ULID, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET active = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), active, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_ACTIVE_FAILED").
			With("operation", "update active").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// takenError maps a unique-constraint violation to the matching sentinel, or
// returns nil if err is not a uniqueness conflict.
func takenError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return oops.Code("USER_USERNAME_TAKEN").Wrap(auth.ErrUsernameTaken)
	case emailConstraint:
		return oops.Code("USER_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken)
	default:
		return nil
	}
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		username     string
		email        string
		passwordHash string
		role         string
		roleApp      string
		active       bool
		verified     bool
		firstName    string
		lastName     string
		cellNumber   *string
		lastLogin    *time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&idStr,
		&username,
		&email,
		&passwordHash,
		&role,
		&roleApp,
		&active,
		&verified,
		&firstName,
		&lastName,
		&cellNumber,
		&lastLogin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:              id,
		Username:        username,
		Email:           email,
		PasswordHash:    passwordHash,
		Role:            auth.Role(role),
		RoleApplication: auth.Role(roleApp),
		Active:          active,
		Verified:        verified,
		FirstName:       firstName,
		LastName:        lastName,
		CellNumber:      cellNumber,
		LastLogin:       lastLogin,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserDirectory = (*UserRepository)(nil)
