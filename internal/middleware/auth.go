// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for sessions, role checks,
// gated actions and request hardening.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/authstate"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/session"
	"github.com/olegiv/automatepro/internal/util"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	ContextKeyClient      ContextKey = "backend_client"
	ContextKeyRequestPath ContextKey = "request_path"
)

// LoginPath is where visitors without a session are sent.
const LoginPath = "/auth"

// Auth resolves the browser's session for every request and puts the
// per-request backend client and session store in the context. It must run
// inside the session manager's LoadAndSave.
func Auth(svc *backend.Service, sm *scs.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	storage := session.NewTokenStorage(sm)
	flashes := session.NewFlashes(sm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := backend.NewClient(svc, storage, clientMeta(r))
			st, err := authstate.New(r.Context(), client, flashes)
			if err != nil {
				logger.Error("resolving session failed", "error", err, "path", r.URL.Path,
					"ip", ClientIP(r), "category", model.EventCategoryAuth)
				http.Error(w, "Service temporarily unavailable. Please try again shortly.", http.StatusServiceUnavailable)
				return
			}
			defer st.Close()

			next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), client, st)))
		})
	}
}

// BearerAuth resolves an API caller's session from the Authorization
// header. A request without the header runs anonymously; a bad token is
// rejected.
func BearerAuth(svc *backend.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var stored *backend.Session
			if token, ok := bearerToken(r); ok {
				sess, err := svc.SessionForAccessToken(r.Context(), token)
				switch {
				case err == nil:
					stored = sess
				case errors.Is(err, backend.ErrUnavailable):
					logger.Error("resolving bearer token failed", "error", err, "category", model.EventCategoryAuth)
					WriteAPIError(w, http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable", nil)
					return
				case errors.Is(err, backend.ErrSessionExpired):
					WriteAPIError(w, http.StatusUnauthorized, "token_expired", "Access token has expired", nil)
					return
				default:
					WriteAPIError(w, http.StatusUnauthorized, "invalid_token", "Invalid access token", nil)
					return
				}
			} else if r.Header.Get("Authorization") != "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>", nil)
				return
			}

			client := backend.NewClient(svc, backend.NewMemoryStorage(stored), clientMeta(r))
			st, err := authstate.New(r.Context(), client, notify.Discard)
			if err != nil {
				logger.Error("resolving session failed", "error", err, "category", model.EventCategoryAuth)
				WriteAPIError(w, http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable", nil)
				return
			}
			defer st.Close()

			next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), client, st)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func withAuth(ctx context.Context, client *backend.Client, st *authstate.Store) context.Context {
	ctx = authstate.NewContext(ctx, st)
	return context.WithValue(ctx, ContextKeyClient, client)
}

func clientMeta(r *http.Request) backend.ClientMeta {
	return backend.ClientMeta{UserAgent: r.UserAgent(), IPAddress: ClientIP(r)}
}

// GetClient returns the request's backend client, or nil outside Auth.
func GetClient(r *http.Request) *backend.Client {
	c, _ := r.Context().Value(ContextKeyClient).(*backend.Client)
	return c
}

// GetStore returns the request's session store, or nil outside Auth.
func GetStore(r *http.Request) *authstate.Store {
	return authstate.FromContext(r.Context())
}

// GetSession returns the signed-in session, or nil.
func GetSession(r *http.Request) *backend.Session {
	if st := GetStore(r); st != nil {
		return st.Session()
	}
	return nil
}

// sessionSource converts the store to an access.SessionSource without
// wrapping a nil pointer in a non-nil interface.
func sessionSource(r *http.Request) access.SessionSource {
	if st := GetStore(r); st != nil {
		return st
	}
	return nil
}

// LoginURL returns the sign-in page with next set to the current path.
func LoginURL(r *http.Request) string {
	if r.Method != http.MethodGet {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

// RequireSession sends visitors without a session to the sign-in page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r) == nil {
			http.Redirect(w, r, LoginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole checks role on every request. Without a session the visitor
// is sent to sign in; when the check denies or fails, n shows
// access.Denied and the visitor is sent to deniedPath.
func RequireRole(checker *access.Checker, role string, n notify.Notifier, deniedPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r)
			if sess == nil {
				http.Redirect(w, r, LoginURL(r), http.StatusSeeOther)
				return
			}
			if d := checker.Check(r.Context(), sess.User.ID, role); !d.Allowed {
				n.Notify(r.Context(), access.Denied)
				http.Redirect(w, r, deniedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole for the admin role, denying to the home page.
func RequireAdmin(checker *access.Checker, n notify.Notifier) func(http.Handler) http.Handler {
	return RequireRole(checker, backend.RoleAdmin, n, "/")
}

// GatedAction runs next only when a session is present. Otherwise n shows
// access.SignInRequired and the visitor is sent to sign in. observe, when
// set, is told whether the action ran.
func GatedAction(n notify.Notifier, observe func(r *http.Request, ran bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ran := false
			action := access.Gate(r.Context(), sessionSource(r), n,
				func() { http.Redirect(w, r, LoginPath, http.StatusSeeOther) },
				func() {
					ran = true
					next.ServeHTTP(w, r)
				})
			action()
			if observe != nil {
				observe(r, ran)
			}
		})
	}
}

// APIRequireSession rejects API calls without a session.
func APIRequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r) == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIRequireRole rejects API calls whose user does not hold role. A failed
// check is a denial too.
func APIRequireRole(checker *access.Checker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r)
			if sess == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if d := checker.Check(r.Context(), sess.User.ID, role); !d.Allowed {
				WriteAPIError(w, http.StatusForbidden, "forbidden", access.Denied.Description, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestPath stores the request path in the context for error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}

// ClientIP returns the client address without its port. Run chi's RealIP
// first to honour proxy headers.
func ClientIP(r *http.Request) string {
	return util.ClientIP(r)
}
