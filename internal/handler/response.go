// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
)

// flashAndRedirect queues n for the next page and redirects to url.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, notifier notify.Notifier, url string, n notify.Notification) {
	notifier.Notify(r.Context(), n)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError queues a destructive notification and redirects to url.
func flashError(w http.ResponseWriter, r *http.Request, notifier notify.Notifier, url, title, description string) {
	flashAndRedirect(w, r, notifier, url, notify.Error(title, description))
}

// flashSuccess queues a default notification and redirects to url.
func flashSuccess(w http.ResponseWriter, r *http.Request, notifier notify.Notifier, url, title, description string) {
	flashAndRedirect(w, r, notifier, url, notify.Info(title, description))
}

// parseFormOrRedirect parses the request form and redirects with an error message on failure.
// Returns true if parsing succeeded, false if it failed (and redirect was performed).
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, notifier notify.Notifier, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, notifier, redirectURL, "Error", "Invalid form data")
		return false
	}
	return true
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// renderPage renders name, falling back to a plain 500 when the template
// fails.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, name string, data render.TemplateData) {
	if err := renderer.Render(w, r, status, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "error", err, "template", name, "path", r.URL.Path)
	}
}

// renderError renders the error page with a message.
func renderError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, title, message string) {
	renderPage(w, r, renderer, status, "site/error", render.TemplateData{Title: title, Data: message})
}

// fieldErrors maps a validation failure onto its form field. Other errors
// yield nil.
func fieldErrors(err error) map[string]string {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return map[string]string{verr.Field: verr.Message}
	}
	return nil
}
