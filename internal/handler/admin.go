// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
	"github.com/olegiv/automatepro/internal/scheduler"
)

// Admin notifications.
var (
	LoadFailed   = notify.Error("Error loading data", "Please try refreshing the page.")
	PostDeleted  = notify.Info("Post deleted", "The blog post has been deleted successfully.")
	DeleteFailed = notify.Error("Error", "Could not delete the blog post.")
)

// Jobs lists and runs the scheduled maintenance jobs.
type Jobs interface {
	Jobs() []scheduler.JobInfo
	TriggerNow(ctx context.Context, name string) error
}

// CacheClearer empties the public content cache.
type CacheClearer interface {
	Clear(ctx context.Context) error
}

// AdminHandler serves the admin dashboard. Its routes sit behind
// middleware.RequireAdmin.
type AdminHandler struct {
	renderer *render.Renderer
	notifier notify.Notifier
	jobs     Jobs
	cache    CacheClearer
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. jobs and cache may be nil.
func NewAdminHandler(renderer *render.Renderer, notifier notify.Notifier, jobs Jobs, cache CacheClearer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		renderer: renderer,
		notifier: notifier,
		jobs:     jobs,
		cache:    cache,
		logger:   logger,
	}
}

// DashboardData holds everything shown on the dashboard.
type DashboardData struct {
	Posts    []backend.Post
	Messages []backend.ContactMessage
	Reviews  []backend.Review
	Events   []model.Event
	Jobs     []scheduler.JobInfo
}

// Dashboard handles GET /admin. Lists are read as the signed-in user, so
// the backend enforces the admin role as well.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := middleware.GetClient(r)
	opts := backend.ListOptions{Limit: adminListLimit}

	var data DashboardData
	var errs []error
	var err error

	data.Posts, err = client.Posts().List(ctx, opts)
	errs = append(errs, err)
	data.Messages, err = client.Contacts().List(ctx, opts)
	errs = append(errs, err)
	data.Reviews, err = client.Reviews().List(ctx, opts)
	errs = append(errs, err)
	data.Events, err = client.Events().List(ctx, opts)
	errs = append(errs, err)
	if h.jobs != nil {
		data.Jobs = h.jobs.Jobs()
	}

	td := render.TemplateData{Title: "Admin Dashboard", Data: data}
	if err := errors.Join(errs...); err != nil {
		h.logger.Error("failed to load dashboard", "error", err, "category", model.EventCategoryContent)
		n := LoadFailed
		td.Flash = &n
	}
	renderPage(w, r, h.renderer, http.StatusOK, "admin/dashboard", td)
}

// DeletePost handles POST /admin/posts/{id}/delete.
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.GetClient(r).Posts().Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete post", "error", err, "post_id", id, "category", model.EventCategoryContent)
		flashAndRedirect(w, r, h.notifier, RouteAdmin, DeleteFailed)
		return
	}
	h.logger.Info("post deleted", "post_id", id, "user_id", middleware.GetSession(r).User.ID,
		"category", model.EventCategoryContent)
	flashAndRedirect(w, r, h.notifier, RouteAdmin, PostDeleted)
}

// RunJob handles POST /admin/jobs/{name}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		flashError(w, r, h.notifier, RouteAdmin, "Error", "The scheduler is not running.")
		return
	}
	if err := h.jobs.TriggerNow(r.Context(), name); err != nil {
		h.logger.Error("manual job run failed", "error", err, "job", name, "category", model.EventCategorySystem)
		flashError(w, r, h.notifier, RouteAdmin, "Job failed", err.Error())
		return
	}
	flashSuccess(w, r, h.notifier, RouteAdmin, "Job finished", name+" ran successfully.")
}

// ClearCache handles POST /admin/cache/clear.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		flashSuccess(w, r, h.notifier, RouteAdmin, "Cache cleared", "Caching is disabled.")
		return
	}
	if err := h.cache.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear cache", "error", err, "category", model.EventCategoryCache)
		flashError(w, r, h.notifier, RouteAdmin, "Error", "Could not clear the cache.")
		return
	}
	h.logger.Info("cache cleared", "category", model.EventCategoryCache)
	flashSuccess(w, r, h.notifier, RouteAdmin, "Cache cleared", "Public pages will be reloaded from the database.")
}
