// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// AuthPurger removes stale auth records.
type AuthPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
	PurgeUnconfirmedUsers(ctx context.Context) (int64, error)
}

// EventPruner removes old audit events.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Maintenance job names.
const (
	JobPurgeAuth   = "purge-auth"
	JobPruneEvents = "prune-events"
)

// MaintenanceJobs returns the hourly auth purge and the daily event prune.
func MaintenanceJobs(auth AuthPurger, events EventPruner, retention time.Duration, logger *slog.Logger) []Job {
	return []Job{
		{
			Name:        JobPurgeAuth,
			Description: "Delete expired sessions and unconfirmed sign-ups",
			Schedule:    "@hourly",
			Run: func(ctx context.Context) error {
				sessions, errS := auth.PurgeExpiredSessions(ctx)
				users, errU := auth.PurgeUnconfirmedUsers(ctx)
				if err := errors.Join(errS, errU); err != nil {
					return fmt.Errorf("purging auth records: %w", err)
				}
				if sessions > 0 || users > 0 {
					logger.Info("purged auth records", "sessions", sessions, "users", users)
				}
				return nil
			},
		},
		{
			Name:        JobPruneEvents,
			Description: fmt.Sprintf("Delete audit events older than %s", retention),
			Schedule:    "@daily",
			Run: func(ctx context.Context) error {
				n, err := events.DeleteOldEvents(ctx, retention)
				if err != nil {
					return fmt.Errorf("pruning events: %w", err)
				}
				if n > 0 {
					logger.Info("pruned audit events", "count", n)
				}
				return nil
			},
		},
	}
}
