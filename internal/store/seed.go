// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/automatepro/internal/auth"
)

// Default admin credentials, used when no password is configured.
const (
	DefaultAdminPassword = "changeme-admin"
	DefaultAdminFirst    = "Site"
	DefaultAdminLast     = "Administrator"
)

// SeedOptions controls the default admin account.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed creates a confirmed admin account holding the admin role.
// It is a no-op when the account already exists.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	queries := New(db)

	_, err := queries.GetUserByEmail(ctx, opts.AdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed", "email", opts.AdminEmail)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	password := opts.AdminPassword
	generated := password == ""
	if generated {
		password = DefaultAdminPassword
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.NewString()

	err = InTx(ctx, db, func(q *Queries) error {
		if _, err := q.CreateUser(ctx, CreateUserParams{
			ID:               id,
			Email:            opts.AdminEmail,
			PasswordHash:     passwordHash,
			EmailConfirmedAt: sql.NullTime{Time: now, Valid: true},
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		if _, err := q.CreateProfile(ctx, CreateProfileParams{
			UserID:      id,
			FirstName:   DefaultAdminFirst,
			LastName:    DefaultAdminLast,
			PhoneNumber: "-",
			CreatedAt:   now,
		}); err != nil {
			return fmt.Errorf("creating admin profile: %w", err)
		}
		for _, role := range []string{"user", "admin"} {
			if err := q.GrantRole(ctx, GrantRoleParams{UserID: id, Role: role, CreatedAt: now}); err != nil {
				return fmt.Errorf("granting %s role: %w", role, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if generated {
		slog.Warn("created default admin user with built-in password; change it before going live",
			"email", opts.AdminEmail)
	} else {
		slog.Info("created admin user", "email", opts.AdminEmail)
	}
	return nil
}
