// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package access

import (
	"context"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/notify"
)

// SignInRequired is shown when a gated action runs without a session.
var SignInRequired = notify.Info("Authentication Required", "Please sign in to use this tool")

// SessionSource exposes the current session. *authstate.Store satisfies it.
type SessionSource interface {
	Session() *backend.Session
}

// Gate wraps action so that it only runs while a session is present.
// Without one, the returned function notifies and calls redirect instead.
// The session is read at call time, not when Gate is called.
func Gate(ctx context.Context, src SessionSource, n notify.Notifier, redirect, action func()) func() {
	return func() {
		if src == nil || src.Session() == nil {
			n.Notify(ctx, SignInRequired)
			redirect()
			return
		}
		action()
	}
}
