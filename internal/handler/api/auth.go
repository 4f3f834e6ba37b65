// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
)

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Token exchanges an email and password for a session.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if h.loginProtection != nil {
		if locked, _ := h.loginProtection.IsAccountLocked(req.Email); locked {
			WriteError(w, http.StatusTooManyRequests, "account_locked", "Too many failed attempts", nil)
			return
		}
	}

	sess, err := middleware.GetClient(r).SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) && h.loginProtection != nil {
			h.loginProtection.RecordFailedAttempt(req.Email)
		}
		h.writeBackendError(w, r, "sign-in", err)
		return
	}
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(req.Email)
	}
	WriteSuccess(w, sess, nil)
}

// Refresh exchanges a refresh token for a new session. The access token may
// already have expired, so the refresh token comes in the body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		WriteValidationError(w, map[string]string{"refresh_token": "Refresh token is required"})
		return
	}
	sess, err := h.svc.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeBackendError(w, r, "refresh", err)
		return
	}
	WriteSuccess(w, sess, nil)
}

// SignOut revokes the bearer token's session.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetClient(r).SignOut(r.Context()); err != nil {
		h.writeBackendError(w, r, "sign-out", err)
		return
	}
	h.logger.Info("api session revoked", "ip", middleware.ClientIP(r), "category", model.EventCategoryAuth)
	w.WriteHeader(http.StatusNoContent)
}
