// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/automatepro/internal/authstate"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/mail"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
)

// Contact notifications.
var (
	MessageSent   = notify.Info("Message sent", "We'll get back to you as soon as possible.")
	MessageFailed = notify.Error("Error sending message", "Please try again later.")
)

// ContactHandler serves the contact form.
type ContactHandler struct {
	renderer   *render.Renderer
	notifier   notify.Notifier
	mailer     mail.Sender
	adminEmail string
	logger     *slog.Logger
}

// NewContactHandler creates a new ContactHandler. With an empty adminEmail
// no notification email is sent.
func NewContactHandler(renderer *render.Renderer, notifier notify.Notifier, mailer mail.Sender, adminEmail string, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		renderer:   renderer,
		notifier:   notifier,
		mailer:     mailer,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// Form handles GET /contact.
func (h *ContactHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, backend.ContactInput{}, nil)
}

func (h *ContactHandler) render(w http.ResponseWriter, r *http.Request, status int, in backend.ContactInput, errs map[string]string) {
	renderPage(w, r, h.renderer, status, "site/contact", render.TemplateData{
		Title:       "Contact",
		Description: "Tell us about your business and what you would like to automate.",
		Data:        in,
		Errors:      errs,
	})
}

// Submit handles POST /contact. Company is stored exactly as given.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.notifier, RouteContact) {
		return
	}
	in := backend.ContactInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Company: r.FormValue("company"),
		Message: r.FormValue("message"),
	}

	if _, err := in.Validate(); err != nil {
		h.notifier.Notify(r.Context(), notify.Error("Error", authstate.Message(err)))
		h.render(w, r, http.StatusUnprocessableEntity, in, fieldErrors(err))
		return
	}

	msg, err := middleware.GetClient(r).Contacts().Insert(r.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, backend.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("failed to save contact message", "error", err, "category", model.EventCategoryContact)
		h.notifier.Notify(r.Context(), MessageFailed)
		h.render(w, r, status, in, nil)
		return
	}

	h.NotifyAdmin(r.Context(), msg)
	flashAndRedirect(w, r, h.notifier, RouteContact, MessageSent)
}

// NotifyAdmin emails the site owner about msg. Delivery failures are logged
// only.
func (h *ContactHandler) NotifyAdmin(ctx context.Context, msg backend.ContactMessage) {
	if h.mailer == nil || h.adminEmail == "" {
		return
	}
	email, err := mail.ContactNotification(h.adminEmail, mail.ContactData{
		Name:    msg.Name,
		Email:   msg.Email,
		Phone:   msg.Phone,
		Company: msg.Company,
		Message: msg.Message,
	})
	if err == nil {
		_, err = h.mailer.Send(ctx, email)
	}
	if err != nil {
		h.logger.Warn("failed to send contact notification", "error", err, "message_id", msg.ID,
			"category", model.EventCategoryContact)
	}
}
