// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package access answers role checks and gates actions on a signed-in
// session.
package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
)

// RoleChecker is the has_role RPC.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// Denied is shown whenever a role check does not grant access, whether the
// user lacks the role or the check itself failed.
var Denied = notify.Error("Access Denied", "You don't have permission to access this page.")

// Decision is the outcome of one role check.
type Decision struct {
	Allowed bool
	// Err is set when the check could not be answered. The user is denied
	// either way.
	Err      error
	Attempts int
}

// Failed reports whether the denial came from a failed check rather than a
// missing role.
func (d Decision) Failed() bool {
	return d.Err != nil
}

// Checker issues a role check on every call. Transient backend failures
// are retried a bounded number of times before the check is treated as
// denied.
type Checker struct {
	rpc      RoleChecker
	retries  int
	backoff  time.Duration
	logger   *slog.Logger
	observer func(role string, d Decision)
}

// Option configures a Checker.
type Option func(*Checker)

// WithRetries sets how many times an unavailable backend is retried and the
// delay before the first retry. The delay doubles on each attempt. A
// cancelled context stops the retries.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Checker) {
		if n >= 0 {
			c.retries = n
		}
		c.backoff = backoff
	}
}

// WithLogger sets the logger used for denials.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// WithObserver calls fn with every decision.
func WithObserver(fn func(role string, d Decision)) Option {
	return func(c *Checker) { c.observer = fn }
}

// NewChecker returns a checker over rpc.
func NewChecker(rpc RoleChecker, opts ...Option) *Checker {
	c := &Checker{
		rpc:     rpc,
		retries: 2,
		backoff: 100 * time.Millisecond,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reports whether userID holds role. An empty userID is denied
// without a call.
func (c *Checker) Check(ctx context.Context, userID, role string) Decision {
	d := c.check(ctx, userID, role)
	switch {
	case d.Failed():
		c.logger.Error("role check failed", "error", d.Err, "user_id", userID, "role", role,
			"attempts", d.Attempts, "category", model.EventCategoryAccess)
	case !d.Allowed:
		c.logger.Warn("access denied", "user_id", userID, "role", role, "category", model.EventCategoryAccess)
	}
	if c.observer != nil {
		c.observer(role, d)
	}
	return d
}

func (c *Checker) check(ctx context.Context, userID, role string) Decision {
	if userID == "" {
		return Decision{}
	}
	var d Decision
	var last error
	b := retry.WithMaxRetries(uint64(c.retries), retry.NewExponential(max(c.backoff, time.Millisecond)))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		d.Attempts++
		ok, err := c.rpc.HasRole(ctx, userID, role)
		if err != nil {
			last = err
			if errors.Is(err, backend.ErrUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		d.Allowed = ok
		return nil
	})
	if err != nil {
		d.Allowed = false
		d.Err = err
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && last != nil {
			d.Err = errors.Join(last, ctxErr)
		}
	}
	return d
}
