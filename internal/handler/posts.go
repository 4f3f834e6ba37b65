// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/editor"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
)

// PostsHandler serves the blog post editor. Each request opens its own
// editor.Editor, which checks the session and the admin role itself.
type PostsHandler struct {
	renderer *render.Renderer
	roles    editor.RoleCheck
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(renderer *render.Renderer, roles editor.RoleCheck, notifier notify.Notifier, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{renderer: renderer, roles: roles, notifier: notifier, logger: logger}
}

// EditorData fills the editor form.
type EditorData struct {
	PostID string
	Draft  backend.PostInput
}

// openEditor returns an editor for r and a pointer to the path it asked to
// navigate to.
func (h *PostsHandler) openEditor(r *http.Request) (*editor.Editor, *string) {
	target := new(string)
	var posts editor.Posts
	if client := middleware.GetClient(r); client != nil {
		posts = client.Posts()
	}
	ed := editor.New(editor.Deps{
		Sessions: storeSource(r),
		Roles:    h.roles,
		Posts:    posts,
		Notifier: h.notifier,
		Navigate: func(path string) { *target = path },
	})
	return ed, target
}

// leave redirects to the editor's navigation target. The sign-in page keeps
// the current path as next.
func leave(w http.ResponseWriter, r *http.Request, target string) {
	if target == editor.SignInPath {
		target = middleware.LoginURL(r)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// New handles GET /admin/posts/new.
func (h *PostsHandler) New(w http.ResponseWriter, r *http.Request) {
	ed, target := h.openEditor(r)
	if ed.Load(r.Context(), "") == editor.NotAuthorized {
		leave(w, r, *target)
		return
	}
	h.render(w, r, http.StatusOK, ed, backend.PostInput{Status: backend.PostDraft}, nil)
}

// Edit handles GET /admin/posts/{id}/edit.
func (h *PostsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ed, target := h.openEditor(r)
	if ed.Load(r.Context(), chi.URLParam(r, "id")) == editor.NotAuthorized {
		leave(w, r, *target)
		return
	}
	h.render(w, r, http.StatusOK, ed, ed.Draft(), nil)
}

// Create handles POST /admin/posts/new.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

// Update handles POST /admin/posts/{id}/edit.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *PostsHandler) save(w http.ResponseWriter, r *http.Request, postID string) {
	ed, target := h.openEditor(r)
	if ed.Load(r.Context(), postID) == editor.NotAuthorized {
		leave(w, r, *target)
		return
	}
	if !parseFormOrRedirect(w, r, h.notifier, r.URL.Path) {
		return
	}
	draft := backend.PostInput{
		Title:    r.FormValue("title"),
		Excerpt:  r.FormValue("excerpt"),
		Content:  r.FormValue("content"),
		ImageURL: r.FormValue("image_url"),
		Status:   backend.PostStatus(r.FormValue("status")),
	}

	state, err := ed.Save(r.Context(), draft)
	switch {
	case err == nil:
		h.logger.Info("post saved", "post_id", ed.Saved().ID, "status", ed.Saved().Status,
			"category", model.EventCategoryContent)
		leave(w, r, *target)
	case errors.Is(err, editor.ErrMissingFields):
		h.render(w, r, http.StatusUnprocessableEntity, ed, draft, missingFieldErrors(draft))
	case state == editor.SaveFailed && errors.Is(err, backend.ErrInvalidInput):
		h.render(w, r, http.StatusUnprocessableEntity, ed, draft, fieldErrors(err))
	default:
		status := http.StatusInternalServerError
		if errors.Is(err, backend.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("failed to save post", "error", err, "post_id", postID, "category", model.EventCategoryContent)
		h.render(w, r, status, ed, draft, nil)
	}
}

func (h *PostsHandler) render(w http.ResponseWriter, r *http.Request, status int, ed *editor.Editor, draft backend.PostInput, errs map[string]string) {
	title := "New Post"
	if ed.PostID() != "" {
		title = "Edit Post"
	}
	renderPage(w, r, h.renderer, status, "admin/editor", render.TemplateData{
		Title:  title,
		Data:   EditorData{PostID: ed.PostID(), Draft: draft},
		Errors: errs,
	})
}

func missingFieldErrors(draft backend.PostInput) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(draft.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(draft.Excerpt) == "" {
		errs["excerpt"] = "Excerpt is required"
	}
	if strings.TrimSpace(draft.Content) == "" {
		errs["content"] = "Content is required"
	}
	return errs
}

// storeSource returns the request's session store as an
// access.SessionSource, or a nil interface outside the Auth middleware.
func storeSource(r *http.Request) access.SessionSource {
	if st := middleware.GetStore(r); st != nil {
		return st
	}
	return nil
}
