// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"html"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/cache"
	"github.com/olegiv/automatepro/internal/mail"
	"github.com/olegiv/automatepro/internal/middleware"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
	"github.com/olegiv/automatepro/internal/scheduler"
	"github.com/olegiv/automatepro/internal/session"
	"github.com/olegiv/automatepro/internal/testutil"
	"github.com/olegiv/automatepro/web"
)

const testPassword = "correct-horse"

// testApp wires the handlers to a real database, session manager and the
// site templates.
type testApp struct {
	db       *sql.DB
	svc      *backend.Service
	sm       *scs.SessionManager
	renderer *render.Renderer
	content  *cache.Content
	checker  *access.Checker
	outbox   *mail.Outbox
	jobs     *fakeJobs
	handler  http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := testutil.TestLogger()

	app := &testApp{
		db:     testutil.TestDB(t),
		outbox: &mail.Outbox{},
		jobs:   &fakeJobs{},
	}

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })

	var content *cache.Content
	app.svc = backend.NewService(app.db, app.outbox, backend.DefaultConfig(),
		backend.WithLogger(logger),
		backend.OnChange(func(ctx context.Context, table string) { content.Invalidate(ctx, table) }))
	content = cache.NewContent(mem, app.svc, time.Minute, logger)
	app.content = content

	app.sm = session.New(app.db, true)
	app.checker = access.NewChecker(app.svc, access.WithLogger(logger))

	templates, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	app.renderer, err = render.New(render.Config{
		TemplatesFS: templates,
		Flashes:     session.NewFlashes(app.sm),
		SiteName:    "AutomatePro",
		SiteURL:     "https://automatepro.test",
	})
	require.NoError(t, err)

	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	t.Cleanup(lp.Close)

	app.handler = app.routes(lp, logger)
	return app
}

// routes mounts the HTML handlers the way the server does, without the
// hardening middleware.
func (app *testApp) routes(lp *middleware.LoginProtection, logger *slog.Logger) http.Handler {
	n := session.NewFlashes(app.sm)

	site := NewSiteHandler(app.renderer, app.content, logger)
	reviews := NewReviewsHandler(app.renderer, app.content, n, logger)
	contact := NewContactHandler(app.renderer, n, app.outbox, "owner@automatepro.test", logger)
	authH := NewAuthHandler(app.renderer, app.svc, n, lp, nil, logger)
	admin := NewAdminHandler(app.renderer, n, app.jobs, app.content, logger)
	posts := NewPostsHandler(app.renderer, app.checker, n, logger)
	toolsH := NewToolsHandler(app.renderer, n, logger)
	health := NewHealthHandler(map[string]Pinger{"database": app.svc}, app.checker)
	seoH := NewSEOHandler(app.content, "https://automatepro.test", false, logger)

	r := chi.NewRouter()
	r.NotFound(site.NotFound)
	r.Get("/health", health.Health)
	r.Get("/sitemap.xml", seoH.Sitemap)
	r.Get("/robots.txt", seoH.Robots)

	r.Get(RouteRoot, site.Home)
	r.Get(RouteAbout, site.About)
	r.Get(RouteUseCases, site.UseCases)
	r.Get(RouteBlog, site.Blog)
	r.Get(RouteBlog+RouteParamSlug, site.Post)
	r.Get(RouteReviews, reviews.List)
	r.With(middleware.RequireSession).Post(RouteReviews, reviews.Submit)
	r.Get(RouteContact, contact.Form)
	r.Post(RouteContact, contact.Submit)

	r.Get(RouteTools, toolsH.Index)
	r.Get(RouteGST, toolsH.GST)
	r.Post(RouteGST, toolsH.Calculate)
	r.Get(RouteTools+RouteParamSlug, toolsH.Show)
	r.With(middleware.GatedAction(n, nil)).Post(RouteTools+RouteParamSlug, toolsH.Submit)

	r.Get(RouteAuth, authH.Form)
	r.Post(RouteAuth+"/signin", authH.SignIn)
	r.Post(RouteAuth+"/signup", authH.SignUp)
	r.Post(RouteAuth+"/signout", authH.SignOut)
	r.Get(RouteAuth+"/confirm", authH.Confirm)

	r.Get(RouteAdmin+"/posts/new", posts.New)
	r.Post(RouteAdmin+"/posts/new", posts.Create)
	r.Get(RouteAdmin+"/posts"+RouteParamID+"/edit", posts.Edit)
	r.Post(RouteAdmin+"/posts"+RouteParamID+"/edit", posts.Update)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(app.checker, n))
		r.Get(RouteAdmin, admin.Dashboard)
		r.Post(RouteAdmin+"/posts"+RouteParamID+"/delete", admin.DeletePost)
		r.Post(RouteAdmin+"/jobs/{name}/run", admin.RunJob)
		r.Post(RouteAdmin+"/cache/clear", admin.ClearCache)
	})

	return app.sm.LoadAndSave(middleware.Auth(app.svc, app.sm, logger)(r))
}

// browser sends requests to the app and keeps its cookies.
type browser struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (app *testApp) browser(t *testing.T) *browser {
	return &browser{t: t, app: app, cookies: make(map[string]*http.Cookie)}
}

// signedIn returns a browser signed in as a new confirmed user, and the
// user's id.
func (app *testApp) signedIn(t *testing.T, email string, roles ...string) (*browser, string) {
	t.Helper()
	id := testutil.CreateUser(t, app.db, email, testPassword, roles...)
	b := app.browser(t)
	rec := b.post("/auth/signin", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return b, id
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// upload posts files as multipart form field "files".
func (b *browser) upload(path string, files map[string][]byte) *httptest.ResponseRecorder {
	b.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile(filesField, name)
		require.NoError(b.t, err)
		_, err = part.Write(data)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

// follow requests the redirect target of rec.
func (b *browser) follow(rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.t.Helper()
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return b.get(rec.Header().Get("Location"))
}

// seedPost writes a post directly through the service as an admin.
func (app *testApp) seedPost(t *testing.T, adminID string, in backend.PostInput) backend.Post {
	t.Helper()
	post, err := app.svc.CreatePost(context.Background(), backend.Principal{UserID: adminID}, adminID, in)
	require.NoError(t, err)
	return post
}

func (app *testApp) seedReview(t *testing.T, userID string, rating int, comment string) {
	t.Helper()
	_, err := app.svc.CreateReview(context.Background(), backend.Principal{UserID: userID},
		backend.ReviewInput{Rating: rating, Comment: comment})
	require.NoError(t, err)
}

type fakeJobs struct {
	ran []string
	err error
}

func (f *fakeJobs) Jobs() []scheduler.JobInfo {
	return []scheduler.JobInfo{{Name: "purge-sessions", Description: "Remove expired sessions", Schedule: "@hourly"}}
}

func (f *fakeJobs) TriggerNow(_ context.Context, name string) error {
	if f.err != nil {
		return f.err
	}
	f.ran = append(f.ran, name)
	return nil
}

// assertToast checks that body shows n.
func assertToast(t *testing.T, body string, n notify.Notification) {
	t.Helper()
	assert.Contains(t, body, "toast-"+string(n.Variant))
	assert.Contains(t, body, "<strong>"+html.EscapeString(n.Title)+"</strong>")
	if n.Description != "" {
		assert.Contains(t, body, html.EscapeString(n.Description))
	}
}
