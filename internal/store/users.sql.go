// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, email, password_hash, email_confirmed_at, last_sign_in_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.EmailConfirmedAt,
		&u.LastSignInAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, email, password_hash, email_confirmed_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateUserParams struct {
	ID               string
	Email            string
	PasswordHash     string
	EmailConfirmedAt sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	if _, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.PasswordHash,
		arg.EmailConfirmedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, arg.ID)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const confirmUserEmail = `-- name: ConfirmUserEmail :exec
UPDATE users SET email_confirmed_at = ?, updated_at = ? WHERE id = ?`

type ConfirmUserEmailParams struct {
	EmailConfirmedAt time.Time
	UpdatedAt        time.Time
	ID               string
}

func (q *Queries) ConfirmUserEmail(ctx context.Context, arg ConfirmUserEmailParams) error {
	_, err := q.db.ExecContext(ctx, confirmUserEmail, arg.EmailConfirmedAt, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserLastSignIn = `-- name: UpdateUserLastSignIn :exec
UPDATE users SET last_sign_in_at = ?, updated_at = ? WHERE id = ?`

type UpdateUserLastSignInParams struct {
	LastSignInAt time.Time
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) UpdateUserLastSignIn(ctx context.Context, arg UpdateUserLastSignInParams) error {
	_, err := q.db.ExecContext(ctx, updateUserLastSignIn, arg.LastSignInAt, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

const deleteUnconfirmedUsersBefore = `-- name: DeleteUnconfirmedUsersBefore :execrows
DELETE FROM users WHERE email_confirmed_at IS NULL AND created_at < ?`

func (q *Queries) DeleteUnconfirmedUsersBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUnconfirmedUsersBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countUsers = `-- name: CountUsers :one
SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const createProfile = `-- name: CreateProfile :exec
INSERT INTO profiles (user_id, first_name, last_name, phone_number, created_at)
VALUES (?, ?, ?, ?, ?)`

type CreateProfileParams struct {
	UserID      string
	FirstName   string
	LastName    string
	PhoneNumber string
	CreatedAt   time.Time
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	if _, err := q.db.ExecContext(ctx, createProfile,
		arg.UserID,
		arg.FirstName,
		arg.LastName,
		arg.PhoneNumber,
		arg.CreatedAt,
	); err != nil {
		return Profile{}, err
	}
	return q.GetProfile(ctx, arg.UserID)
}

const getProfile = `-- name: GetProfile :one
SELECT user_id, first_name, last_name, phone_number, created_at FROM profiles WHERE user_id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := q.db.QueryRowContext(ctx, getProfile, userID).
		Scan(&p.UserID, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.CreatedAt)
	return p, err
}

const grantRole = `-- name: GrantRole :exec
INSERT OR IGNORE INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)`

type GrantRoleParams struct {
	UserID    string
	Role      string
	CreatedAt time.Time
}

func (q *Queries) GrantRole(ctx context.Context, arg GrantRoleParams) error {
	_, err := q.db.ExecContext(ctx, grantRole, arg.UserID, arg.Role, arg.CreatedAt)
	return err
}

const hasRole = `-- name: HasRole :one
SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = ? AND role = ?)`

type HasRoleParams struct {
	UserID string
	Role   string
}

func (q *Queries) HasRole(ctx context.Context, arg HasRoleParams) (bool, error) {
	var exists int64
	err := q.db.QueryRowContext(ctx, hasRole, arg.UserID, arg.Role).Scan(&exists)
	return exists == 1, err
}

const listUserRoles = `-- name: ListUserRoles :many
SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`

func (q *Queries) ListUserRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUserRoles, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		items = append(items, role)
	}
	return items, rows.Err()
}
