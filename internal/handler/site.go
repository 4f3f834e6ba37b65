// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the site's HTML handlers: marketing pages,
// the blog, reviews, contact, tools, sign-in and the admin dashboard.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/cache"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/render"
)

// SiteHandler serves the public pages.
type SiteHandler struct {
	renderer *render.Renderer
	content  *cache.Content
	logger   *slog.Logger
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(renderer *render.Renderer, content *cache.Content, logger *slog.Logger) *SiteHandler {
	return &SiteHandler{renderer: renderer, content: content, logger: logger}
}

// HomeData holds the home page's latest reviews and posts.
type HomeData struct {
	Reviews []backend.Review
	Posts   []backend.Post
}

// Home handles GET /. Sections whose data cannot be loaded are left out.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	var data HomeData
	reviews, err := h.content.Reviews(r.Context(), homeReviews, 0)
	if err != nil {
		h.logger.Warn("failed to load home reviews", "error", err, "category", model.EventCategoryReview)
	}
	data.Reviews = reviews

	posts, err := h.content.PublishedPosts(r.Context(), homePosts, 0)
	if err != nil {
		h.logger.Warn("failed to load home posts", "error", err, "category", model.EventCategoryContent)
	}
	data.Posts = posts

	renderPage(w, r, h.renderer, http.StatusOK, "site/home", render.TemplateData{
		Description: "Business automation, integrations and free office tools.",
		Data:        data,
	})
}

// About handles GET /about.
func (h *SiteHandler) About(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "site/about", render.TemplateData{Title: "About"})
}

// UseCases handles GET /use-cases.
func (h *SiteHandler) UseCases(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "site/use_cases", render.TemplateData{Title: "Use Cases"})
}

// BlogData holds one page of published posts.
type BlogData struct {
	Posts      []backend.Post
	Pagination Pagination
}

// Blog handles GET /blog.
func (h *SiteHandler) Blog(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	total, err := h.content.PublishedCount(r.Context())
	if err != nil {
		h.serverError(w, r, err, "failed to count posts")
		return
	}
	posts, err := h.content.PublishedPosts(r.Context(), blogPerPage, (page-1)*blogPerPage)
	if err != nil {
		h.serverError(w, r, err, "failed to list posts")
		return
	}
	if len(posts) == 0 && page > 1 {
		h.NotFound(w, r)
		return
	}

	renderPage(w, r, h.renderer, http.StatusOK, "blog/index", render.TemplateData{
		Title:       "Blog",
		Description: "Guides and stories about business automation.",
		Data: BlogData{
			Posts:      posts,
			Pagination: BuildPagination(page, int(total), blogPerPage, RouteBlog, r.URL.Query()),
		},
	})
}

// Post handles GET /blog/{slug}. Drafts are not found.
func (h *SiteHandler) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, err := h.content.PublishedPost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.serverError(w, r, err, "failed to load post", "slug", slug)
		return
	}

	renderPage(w, r, h.renderer, http.StatusOK, "blog/post", render.TemplateData{
		Title:       post.Title,
		Description: post.Excerpt,
		Data:        post,
	})
}

// NotFound renders the 404 page.
func (h *SiteHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.renderer, http.StatusNotFound, "Page Not Found",
		"The page you are looking for does not exist or has been moved.")
}

func (h *SiteHandler) serverError(w http.ResponseWriter, r *http.Request, err error, msg string, args ...any) {
	h.logger.Error(msg, append([]any{"error", err, "path", r.URL.Path}, args...)...)
	renderError(w, r, h.renderer, http.StatusInternalServerError, "Something went wrong",
		"We could not load this page. Please try again later.")
}
