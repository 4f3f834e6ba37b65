// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
	"github.com/olegiv/automatepro/internal/util"
)

// EmailConfirmer verifies sign-up confirmation tokens.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) (backend.User, error)
}

// AuthEventLogger records sign-in attempts the backend never sees, such as
// attempts on locked accounts.
type AuthEventLogger interface {
	LogAuthEvent(ctx context.Context, level, message, userID, ipAddress, userAgent string, metadata map[string]any) error
}

// AuthHandler handles the sign-in and sign-up pages.
type AuthHandler struct {
	renderer        *render.Renderer
	confirmer       EmailConfirmer
	notifier        notify.Notifier
	loginProtection *middleware.LoginProtection
	events          AuthEventLogger
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. lp and events may be nil.
func NewAuthHandler(renderer *render.Renderer, confirmer EmailConfirmer, notifier notify.Notifier,
	lp *middleware.LoginProtection, events AuthEventLogger, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		renderer:        renderer,
		confirmer:       confirmer,
		notifier:        notifier,
		loginProtection: lp,
		events:          events,
		logger:          logger,
	}
}

// AuthData fills the sign-in and sign-up forms. Passwords are never echoed.
type AuthData struct {
	SignUp      bool
	Next        string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// Form handles GET /auth. Signed-in visitors are sent on to next.
func (h *AuthHandler) Form(w http.ResponseWriter, r *http.Request) {
	next := util.SafeRedirect(r.URL.Query().Get("next"), "")
	if middleware.GetSession(r) != nil {
		http.Redirect(w, r, util.SafeRedirect(next, RouteRoot), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, AuthData{
		SignUp: r.URL.Query().Get("mode") == "signup",
		Next:   next,
	}, nil)
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, data AuthData, errs map[string]string) {
	title := "Sign In"
	if data.SignUp {
		title = "Sign Up"
	}
	renderPage(w, r, h.renderer, status, "auth/auth", render.TemplateData{
		Title:  title,
		Data:   data,
		Errors: errs,
	})
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.notifier, RouteAuth) {
		return
	}
	email := r.FormValue("email")
	password := r.FormValue("password")
	data := AuthData{Email: email, Next: util.SafeRedirect(r.FormValue("next"), "")}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			h.logAuthEvent(r, model.EventLevelWarning, "Sign-in attempt on locked account", email)
			h.notifier.Notify(r.Context(), notify.Error("Error signing in",
				"Too many failed attempts. Try again in "+formatDuration(remaining)+"."))
			h.render(w, r, http.StatusTooManyRequests, data, nil)
			return
		}
	}

	st := middleware.GetStore(r)
	if err := st.SignIn(r.Context(), email, password); err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, backend.ErrInvalidCredentials):
			h.recordFailure(r, email)
		case errors.Is(err, backend.ErrEmailNotConfirmed):
			status = http.StatusForbidden
		case errors.Is(err, backend.ErrUnavailable):
			status = http.StatusServiceUnavailable
		case auth.IsValidation(err):
			status = http.StatusUnprocessableEntity
		default:
			status = http.StatusInternalServerError
			h.logger.Error("sign-in failed", "error", err, "category", model.EventCategoryAuth)
		}
		h.render(w, r, status, data, nil)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}
	http.Redirect(w, r, util.SafeRedirect(data.Next, RouteRoot), http.StatusSeeOther)
}

// recordFailure counts a failed password and replaces the store's
// notification once the account locks or few attempts remain.
func (h *AuthHandler) recordFailure(r *http.Request, email string) {
	if h.loginProtection == nil {
		return
	}
	if locked, d := h.loginProtection.RecordFailedAttempt(email); locked {
		h.logAuthEvent(r, model.EventLevelWarning, "Account locked after failed sign-ins", email)
		h.notifier.Notify(r.Context(), notify.Error("Error signing in",
			"Too many failed attempts. Try again in "+formatDuration(d)+"."))
		return
	}
	if remaining := h.loginProtection.RemainingAttempts(email); remaining > 0 && remaining <= 3 {
		h.notifier.Notify(r.Context(), notify.Error("Error signing in",
			fmt.Sprintf("Invalid login credentials. %d attempts remaining.", remaining)))
	}
}

func (h *AuthHandler) logAuthEvent(r *http.Request, level, message, email string) {
	if h.events == nil {
		return
	}
	if err := h.events.LogAuthEvent(r.Context(), level, message, "", middleware.ClientIP(r), r.UserAgent(),
		map[string]any{"email": email}); err != nil {
		h.logger.Warn("failed to log auth event", "error", err)
	}
}

// SignUp handles POST /auth/signup. The new account must confirm its email
// before signing in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.notifier, RouteAuth+"?mode=signup") {
		return
	}
	data := AuthData{
		SignUp:      true,
		Next:        util.SafeRedirect(r.FormValue("next"), ""),
		Email:       r.FormValue("email"),
		FirstName:   r.FormValue("first_name"),
		LastName:    r.FormValue("last_name"),
		PhoneNumber: r.FormValue("phone_number"),
	}
	profile := auth.SignUpProfile{
		PhoneNumber: data.PhoneNumber,
		FirstName:   data.FirstName,
		LastName:    data.LastName,
	}

	st := middleware.GetStore(r)
	if err := st.SignUp(r.Context(), data.Email, r.FormValue("password"), profile); err != nil {
		status := http.StatusInternalServerError
		switch {
		case auth.IsValidation(err):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, backend.ErrUserExists):
			status = http.StatusConflict
		case errors.Is(err, backend.ErrUnavailable):
			status = http.StatusServiceUnavailable
		default:
			h.logger.Error("sign-up failed", "error", err, "category", model.EventCategoryAuth)
		}
		h.render(w, r, status, data, fieldErrors(err))
		return
	}

	target := RouteAuth
	if data.Next != "" {
		target += "?next=" + url.QueryEscape(data.Next)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SignOut handles POST /auth/signout.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if st := middleware.GetStore(r); st != nil && st.Session() != nil {
		if err := st.SignOut(r.Context()); err != nil {
			h.logger.Warn("sign-out failed", "error", err, "category", model.EventCategoryAuth)
		}
	}
	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

// Confirm handles GET /auth/confirm?token=.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	user, err := h.confirmer.ConfirmEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, backend.ErrInvalidToken) {
			status = http.StatusInternalServerError
			h.logger.Error("email confirmation failed", "error", err, "category", model.EventCategoryAuth)
		}
		renderPage(w, r, h.renderer, status, "auth/confirm", render.TemplateData{Title: "Email Confirmation"})
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, "auth/confirm", render.TemplateData{
		Title: "Email Confirmation",
		Data:  user.Email,
	})
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
