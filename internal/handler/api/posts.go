// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
)

// ListPosts handles GET /posts. Only published posts are listed.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage := pageParams(r, 10, 100)

	total, err := h.content.PublishedCount(ctx)
	if err != nil {
		h.writeBackendError(w, r, "posts", err)
		return
	}
	posts, err := h.content.PublishedPosts(ctx, perPage, (page-1)*perPage)
	if err != nil {
		h.writeBackendError(w, r, "posts", err)
		return
	}
	if posts == nil {
		posts = []backend.Post{}
	}
	WriteSuccess(w, posts, newMeta(total, page, perPage))
}

// GetPost handles GET /posts/{slug}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.PublishedPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeBackendError(w, r, "Post", err)
		return
	}
	WriteSuccess(w, post, nil)
}

// ListAllPosts handles GET /admin/posts, drafts included. ?status= filters.
func (h *Handler) ListAllPosts(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r, 20, 100)
	status := backend.PostStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		WriteBadRequest(w, "Invalid status")
		return
	}

	posts, err := middleware.GetClient(r).Posts().List(r.Context(), backend.ListOptions{
		Status: status,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		h.writeBackendError(w, r, "posts", err)
		return
	}
	if posts == nil {
		posts = []backend.Post{}
	}
	WriteSuccess(w, posts, nil)
}

// CreatePost handles POST /admin/posts. The caller is the author.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in backend.PostInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sess := middleware.GetSession(r)
	post, err := middleware.GetClient(r).Posts().Insert(r.Context(), sess.User.ID, in)
	if err != nil {
		h.writeBackendError(w, r, "post", err)
		return
	}
	h.logger.Info("post created via api", "post_id", post.ID, "user_id", sess.User.ID,
		"category", model.EventCategoryContent)
	WriteCreated(w, post)
}

// UpdatePost handles PUT /admin/posts/{id}. The body replaces every
// editable field.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var in backend.PostInput
	if !decodeJSON(w, r, &in) {
		return
	}
	post, err := middleware.GetClient(r).Posts().Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeBackendError(w, r, "Post", err)
		return
	}
	WriteSuccess(w, post, nil)
}

// DeletePost handles DELETE /admin/posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.GetClient(r).Posts().Delete(r.Context(), id); err != nil {
		h.writeBackendError(w, r, "Post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
