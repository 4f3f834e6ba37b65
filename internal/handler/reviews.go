// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/automatepro/internal/authstate"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/cache"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
)

// Review notifications.
var (
	RatingRequired  = notify.Error("Error", "Please select a rating")
	ReviewSubmitted = notify.Info("Review submitted successfully", "Thank you for your feedback!")
	ReviewFailed    = notify.Error("Error submitting review", "Please try again later")
)

// ReviewsHandler lists reviews and takes new ones.
type ReviewsHandler struct {
	renderer *render.Renderer
	content  *cache.Content
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewReviewsHandler creates a new ReviewsHandler.
func NewReviewsHandler(renderer *render.Renderer, content *cache.Content, notifier notify.Notifier, logger *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{renderer: renderer, content: content, notifier: notifier, logger: logger}
}

// ReviewForm holds the review form's values.
type ReviewForm struct {
	Rating  int
	Comment string
}

// ReviewsData holds one page of reviews and the form.
type ReviewsData struct {
	Reviews    []backend.Review
	Pagination Pagination
	Form       ReviewForm
}

// List handles GET /reviews.
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ReviewForm{}, nil)
}

func (h *ReviewsHandler) render(w http.ResponseWriter, r *http.Request, status int, form ReviewForm, errs map[string]string) {
	page := pageParam(r)
	data := ReviewsData{Form: form}

	total, err := h.content.ReviewCount(r.Context())
	if err == nil {
		data.Reviews, err = h.content.Reviews(r.Context(), reviewsPerPage, (page-1)*reviewsPerPage)
	}
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err, "category", model.EventCategoryReview)
	}
	data.Pagination = BuildPagination(page, int(total), reviewsPerPage, RouteReviews, r.URL.Query())

	renderPage(w, r, h.renderer, status, "site/reviews", render.TemplateData{
		Title:       "Reviews",
		Description: "What our clients say about working with us.",
		Data:        data,
		Errors:      errs,
	})
}

// Submit handles POST /reviews. The route requires a session. A rating
// outside 1..5 is rejected before anything is stored.
func (h *ReviewsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.notifier, RouteReviews) {
		return
	}
	rating, _ := strconv.Atoi(r.FormValue("rating"))
	form := ReviewForm{Rating: rating, Comment: r.FormValue("comment")}
	in := backend.ReviewInput{Rating: form.Rating, Comment: form.Comment}

	if _, err := in.Validate(); err != nil {
		if errs := fieldErrors(err); errs["rating"] != "" {
			h.notifier.Notify(r.Context(), RatingRequired)
		} else {
			h.notifier.Notify(r.Context(), notify.Error("Error", authstate.Message(err)))
		}
		h.render(w, r, http.StatusUnprocessableEntity, form, fieldErrors(err))
		return
	}

	client := middleware.GetClient(r)
	if _, err := client.Reviews().Insert(r.Context(), in); err != nil {
		if errors.Is(err, backend.ErrNotAuthenticated) || errors.Is(err, backend.ErrSessionExpired) {
			http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
			return
		}
		h.logger.Error("failed to submit review", "error", err, "category", model.EventCategoryReview)
		h.notifier.Notify(r.Context(), ReviewFailed)
		h.render(w, r, http.StatusInternalServerError, form, nil)
		return
	}

	flashAndRedirect(w, r, h.notifier, RouteReviews, ReviewSubmitted)
}
