// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager and keeps the
// browser's auth session and pending notifications in it.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/notify"
)

// Session keys.
const (
	keyAuth        = "auth_session"
	keyFlash       = "flash"
	keyFlashDetail = "flash_detail"
	keyFlashType   = "flash_type"
)

// CookieName is the name of the session cookie.
const CookieName = "automatepro_session"

// New creates a session manager backed by the sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 30 * 24 * time.Hour
	sm.IdleTimeout = 7 * 24 * time.Hour
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev

	return sm
}

// TokenStorage keeps the backend session inside the cookie session.
type TokenStorage struct {
	sm *scs.SessionManager
}

// NewTokenStorage returns storage bound to sm. The request context must
// have passed through sm.LoadAndSave.
func NewTokenStorage(sm *scs.SessionManager) *TokenStorage {
	return &TokenStorage{sm: sm}
}

func (s *TokenStorage) Load(ctx context.Context) (*backend.Session, error) {
	raw := s.sm.GetString(ctx, keyAuth)
	if raw == "" {
		return nil, nil
	}
	var sess backend.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// A cookie session from an older layout; treat as signed out.
		s.sm.Remove(ctx, keyAuth)
		return nil, nil
	}
	return &sess, nil
}

// Save stores sess and renews the cookie token so a session id seen before
// sign-in is never reused after it.
func (s *TokenStorage) Save(ctx context.Context, sess *backend.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	s.sm.Put(ctx, keyAuth, string(raw))
	return nil
}

func (s *TokenStorage) Clear(ctx context.Context) error {
	s.sm.Remove(ctx, keyAuth)
	return s.sm.RenewToken(ctx)
}

// Flashes shows notifications on the next rendered page.
type Flashes struct {
	sm *scs.SessionManager
}

// NewFlashes returns a notifier bound to sm.
func NewFlashes(sm *scs.SessionManager) *Flashes {
	return &Flashes{sm: sm}
}

// Notify replaces any pending notification with n.
func (f *Flashes) Notify(ctx context.Context, n notify.Notification) {
	f.sm.Put(ctx, keyFlash, n.Title)
	f.sm.Put(ctx, keyFlashDetail, n.Description)
	f.sm.Put(ctx, keyFlashType, string(n.Variant))
}

// Pop removes and returns the pending notification.
func (f *Flashes) Pop(ctx context.Context) (notify.Notification, bool) {
	title := f.sm.PopString(ctx, keyFlash)
	if title == "" {
		return notify.Notification{}, false
	}
	return notify.Notification{
		Title:       title,
		Description: f.sm.PopString(ctx, keyFlashDetail),
		Variant:     notify.Variant(f.sm.PopString(ctx, keyFlashType)),
	}, true
}
