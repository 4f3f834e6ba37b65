// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/store"
)

// TestLogger creates a logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary migrated database closed at test cleanup.
func TestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// CreateUser inserts a confirmed user with a profile and the given roles
// and returns its id.
func CreateUser(t testing.TB, db *sql.DB, email, password string, roles ...string) string {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	id := uuid.NewString()

	err = store.InTx(ctx, db, func(q *store.Queries) error {
		if _, err := q.CreateUser(ctx, store.CreateUserParams{
			ID:               id,
			Email:            email,
			PasswordHash:     hash,
			EmailConfirmedAt: sql.NullTime{Time: now, Valid: true},
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return err
		}
		if _, err := q.CreateProfile(ctx, store.CreateProfileParams{
			UserID:      id,
			FirstName:   "Test",
			LastName:    "User",
			PhoneNumber: "555-0100",
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		for _, role := range roles {
			if err := q.GrantRole(ctx, store.GrantRoleParams{UserID: id, Role: role, CreatedAt: now}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}
