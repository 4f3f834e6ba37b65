// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const authSessionColumns = `id, user_id, access_token_hash, refresh_token_hash, previous_refresh_hash,
access_expires_at, refresh_expires_at, user_agent, ip_address, created_at, updated_at`

func scanAuthSession(row interface{ Scan(...any) error }) (AuthSession, error) {
	var s AuthSession
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.AccessTokenHash,
		&s.RefreshTokenHash,
		&s.PreviousRefreshHash,
		&s.AccessExpiresAt,
		&s.RefreshExpiresAt,
		&s.UserAgent,
		&s.IpAddress,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

const createAuthSession = `-- name: CreateAuthSession :exec
INSERT INTO auth_sessions (id, user_id, access_token_hash, refresh_token_hash, access_expires_at,
    refresh_expires_at, user_agent, ip_address, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateAuthSessionParams struct {
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserAgent        string
	IpAddress        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (q *Queries) CreateAuthSession(ctx context.Context, arg CreateAuthSessionParams) (AuthSession, error) {
	if _, err := q.db.ExecContext(ctx, createAuthSession,
		arg.ID,
		arg.UserID,
		arg.AccessTokenHash,
		arg.RefreshTokenHash,
		arg.AccessExpiresAt,
		arg.RefreshExpiresAt,
		arg.UserAgent,
		arg.IpAddress,
		arg.CreatedAt,
		arg.UpdatedAt,
	); err != nil {
		return AuthSession{}, err
	}
	return q.GetAuthSession(ctx, arg.ID)
}

const getAuthSession = `-- name: GetAuthSession :one
SELECT ` + authSessionColumns + ` FROM auth_sessions WHERE id = ?`

func (q *Queries) GetAuthSession(ctx context.Context, id string) (AuthSession, error) {
	return scanAuthSession(q.db.QueryRowContext(ctx, getAuthSession, id))
}

const getAuthSessionByAccessHash = `-- name: GetAuthSessionByAccessHash :one
SELECT ` + authSessionColumns + ` FROM auth_sessions WHERE access_token_hash = ?`

func (q *Queries) GetAuthSessionByAccessHash(ctx context.Context, hash string) (AuthSession, error) {
	return scanAuthSession(q.db.QueryRowContext(ctx, getAuthSessionByAccessHash, hash))
}

const getAuthSessionByRefreshHash = `-- name: GetAuthSessionByRefreshHash :one
SELECT ` + authSessionColumns + ` FROM auth_sessions WHERE refresh_token_hash = ?`

func (q *Queries) GetAuthSessionByRefreshHash(ctx context.Context, hash string) (AuthSession, error) {
	return scanAuthSession(q.db.QueryRowContext(ctx, getAuthSessionByRefreshHash, hash))
}

const getAuthSessionByPreviousRefreshHash = `-- name: GetAuthSessionByPreviousRefreshHash :one
SELECT ` + authSessionColumns + ` FROM auth_sessions WHERE previous_refresh_hash = ? AND previous_refresh_hash != ''`

// GetAuthSessionByPreviousRefreshHash finds the session whose last rotation
// replaced the refresh token with this hash.
func (q *Queries) GetAuthSessionByPreviousRefreshHash(ctx context.Context, hash string) (AuthSession, error) {
	return scanAuthSession(q.db.QueryRowContext(ctx, getAuthSessionByPreviousRefreshHash, hash))
}

const rotateAuthSession = `-- name: RotateAuthSession :execrows
UPDATE auth_sessions
SET previous_refresh_hash = refresh_token_hash, access_token_hash = ?, refresh_token_hash = ?,
    access_expires_at = ?, refresh_expires_at = ?, updated_at = ?
WHERE id = ? AND refresh_token_hash = ?`

type RotateAuthSessionParams struct {
	AccessTokenHash     string
	RefreshTokenHash    string
	AccessExpiresAt     time.Time
	RefreshExpiresAt    time.Time
	UpdatedAt           time.Time
	ID                  string
	OldRefreshTokenHash string
}

// RotateAuthSession swaps both tokens of a session and remembers the replaced
// refresh hash. The old refresh hash guards against two concurrent refreshes
// both succeeding; the loser gets zero rows.
func (q *Queries) RotateAuthSession(ctx context.Context, arg RotateAuthSessionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, rotateAuthSession,
		arg.AccessTokenHash,
		arg.RefreshTokenHash,
		arg.AccessExpiresAt,
		arg.RefreshExpiresAt,
		arg.UpdatedAt,
		arg.ID,
		arg.OldRefreshTokenHash,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAuthSession = `-- name: DeleteAuthSession :exec
DELETE FROM auth_sessions WHERE id = ?`

func (q *Queries) DeleteAuthSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteAuthSession, id)
	return err
}

const deleteExpiredAuthSessions = `-- name: DeleteExpiredAuthSessions :execrows
DELETE FROM auth_sessions WHERE refresh_expires_at < ?`

func (q *Queries) DeleteExpiredAuthSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredAuthSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createEmailConfirmation = `-- name: CreateEmailConfirmation :exec
INSERT INTO email_confirmations (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`

type CreateEmailConfirmationParams struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (q *Queries) CreateEmailConfirmation(ctx context.Context, arg CreateEmailConfirmationParams) error {
	_, err := q.db.ExecContext(ctx, createEmailConfirmation, arg.TokenHash, arg.UserID, arg.ExpiresAt, arg.CreatedAt)
	return err
}

const getEmailConfirmation = `-- name: GetEmailConfirmation :one
SELECT token_hash, user_id, expires_at, created_at FROM email_confirmations WHERE token_hash = ?`

func (q *Queries) GetEmailConfirmation(ctx context.Context, tokenHash string) (EmailConfirmation, error) {
	var c EmailConfirmation
	err := q.db.QueryRowContext(ctx, getEmailConfirmation, tokenHash).
		Scan(&c.TokenHash, &c.UserID, &c.ExpiresAt, &c.CreatedAt)
	return c, err
}

const deleteUserEmailConfirmations = `-- name: DeleteUserEmailConfirmations :exec
DELETE FROM email_confirmations WHERE user_id = ?`

func (q *Queries) DeleteUserEmailConfirmations(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteUserEmailConfirmations, userID)
	return err
}
