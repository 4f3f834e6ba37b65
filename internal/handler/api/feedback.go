// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/gst"
	"github.com/olegiv/automatepro/internal/handler"
	"github.com/olegiv/automatepro/internal/middleware"
)

// ListReviews handles GET /reviews, newest first.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage := pageParams(r, 12, 100)

	total, err := h.content.ReviewCount(ctx)
	if err != nil {
		h.writeBackendError(w, r, "reviews", err)
		return
	}
	reviews, err := h.content.Reviews(ctx, perPage, (page-1)*perPage)
	if err != nil {
		h.writeBackendError(w, r, "reviews", err)
		return
	}
	if reviews == nil {
		reviews = []backend.Review{}
	}
	WriteSuccess(w, reviews, newMeta(total, page, perPage))
}

// CreateReview handles POST /reviews for the bearer's user.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var in backend.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	review, err := middleware.GetClient(r).Reviews().Insert(r.Context(), in)
	if err != nil {
		h.writeBackendError(w, r, "review", err)
		return
	}
	WriteCreated(w, review)
}

// CreateContact handles POST /contact. No session is needed.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var in backend.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	msg, err := middleware.GetClient(r).Contacts().Insert(r.Context(), in)
	if err != nil {
		h.writeBackendError(w, r, "message", err)
		return
	}
	if h.contacts != nil {
		h.contacts.NotifyAdmin(r.Context(), msg)
	}
	WriteCreated(w, msg)
}

// ListMessages handles GET /admin/messages, newest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r, 20, 100)
	msgs, err := middleware.GetClient(r).Contacts().List(r.Context(), backend.ListOptions{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		h.writeBackendError(w, r, "messages", err)
		return
	}
	if msgs == nil {
		msgs = []backend.ContactMessage{}
	}
	WriteSuccess(w, msgs, nil)
}

// CalculateGST handles POST /tools/gst. Any two amounts give the third; a
// lone price before GST uses the standard rate.
func (h *Handler) CalculateGST(w http.ResponseWriter, r *http.Request) {
	var in gst.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := handler.CalculateGST(in)
	if err != nil {
		var ferr *gst.FieldError
		if errors.As(err, &ferr) {
			WriteValidationError(w, map[string]string{string(ferr.Field): "Please enter a number"})
			return
		}
		h.writeBackendError(w, r, "calculation", err)
		return
	}
	if res.Computed == "" {
		WriteValidationError(w, map[string]string{"gst": "Enter at least two amounts, or the price before GST"})
		return
	}
	WriteSuccess(w, res, nil)
}
