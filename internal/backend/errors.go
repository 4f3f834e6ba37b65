// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"database/sql"
	"errors"
	"fmt"
)

// Authentication errors. Their messages are shown to users as-is.
var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserExists         = errors.New("user already registered")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Data and authorization errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("permission denied")
	ErrUnavailable  = errors.New("backend unavailable")
)

// storeErr maps a database error onto the backend taxonomy. Missing rows
// become ErrNotFound; anything else is reported as ErrUnavailable while
// keeping the cause in the chain.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

// invalid wraps a validation failure so callers can match ErrInvalidInput
// and still reach the *auth.ValidationError.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
