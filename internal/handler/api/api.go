// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers of the site.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/cache"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ContactNotifier is told about every stored contact message.
type ContactNotifier interface {
	NotifyAdmin(ctx context.Context, msg backend.ContactMessage)
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	svc             *backend.Service
	content         *cache.Content
	checker         *access.Checker
	contacts        ContactNotifier
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
}

// Deps are the dependencies of a Handler. Contacts and LoginProtection may
// be nil.
type Deps struct {
	Service         *backend.Service
	Content         *cache.Content
	Checker         *access.Checker
	Contacts        ContactNotifier
	LoginProtection *middleware.LoginProtection
	Logger          *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		svc:             d.Service,
		content:         d.Content,
		checker:         d.Checker,
		contacts:        d.Contacts,
		loginProtection: d.LoginProtection,
		logger:          d.Logger,
	}
}

// Mount registers the v1 routes on r. The caller runs
// middleware.BearerAuth in front of them.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.Status)

	r.Post("/auth/token", h.Token)
	r.Post("/auth/refresh", h.Refresh)
	r.With(middleware.APIRequireSession).Post("/auth/signout", h.SignOut)

	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{slug}", h.GetPost)
	r.Get("/reviews", h.ListReviews)
	r.With(middleware.APIRequireSession).Post("/reviews", h.CreateReview)
	r.Post("/contact", h.CreateContact)
	r.Post("/tools/gst", h.CalculateGST)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIRequireRole(h.checker, backend.RoleAdmin))
		r.Get("/messages", h.ListMessages)
		r.Get("/posts", h.ListAllPosts)
		r.Post("/posts", h.CreatePost)
		r.Put("/posts/{id}", h.UpdatePost)
		r.Delete("/posts/{id}", h.DeletePost)
	})
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

func newMeta(total int64, page, perPage int) *Meta {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Meta{Total: total, Page: page, PerPage: perPage, Pages: pages}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	middleware.WriteAPIError(w, statusCode, code, message, details)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeBackendError maps a backend error to its HTTP status and code.
func (h *Handler) writeBackendError(w http.ResponseWriter, r *http.Request, what string, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, map[string]string{verr.Field: verr.Message})
	case errors.Is(err, backend.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid login credentials", nil)
	case errors.Is(err, backend.ErrEmailNotConfirmed):
		WriteError(w, http.StatusForbidden, "email_not_confirmed", "Email not confirmed", nil)
	case errors.Is(err, backend.ErrUserExists):
		WriteError(w, http.StatusConflict, "user_exists", "User already registered", nil)
	case errors.Is(err, backend.ErrNotAuthenticated), errors.Is(err, backend.ErrSessionExpired),
		errors.Is(err, backend.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	case errors.Is(err, backend.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", access.Denied.Description, nil)
	case errors.Is(err, backend.ErrNotFound):
		WriteNotFound(w, what+" not found")
	case errors.Is(err, backend.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable", nil)
	default:
		h.logger.Error("api request failed", "error", err, "path", r.URL.Path, "category", model.EventCategorySystem)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to process "+what, nil)
	}
}

// decodeJSON reads the request body into v. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

// pageParams parses ?page= and ?per_page=, clamping per_page to limit.
func pageParams(r *http.Request, def, limit int) (page, perPage int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = def
	}
	return page, min(perPage, limit)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: "v1"}, nil)
}
