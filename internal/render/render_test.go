// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/notify"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<title>{{.Title}} | {{.SiteName}}</title>` +
				`{{template "flash" .}}{{template "content" .}}<footer>{{.CurrentYear}}</footer>{{end}}`)},
		"partials/flash.html": {Data: []byte(
			`{{define "flash"}}{{with .Flash}}<div class="toast toast-{{.Variant}}">{{.Title}}: {{.Description}}</div>{{end}}{{end}}`)},
		"site/home.html": {Data: []byte(
			`{{define "content"}}<p>{{.Data}}</p>{{if .SignedIn}}in{{else}}out{{end}}{{end}}`)},
		"blog/post.html": {Data: []byte(
			`{{define "content"}}{{markdown .Data}}{{end}}`)},
	}
}

type stubFlashes struct {
	pending []notify.Notification
}

func (s *stubFlashes) Pop(context.Context) (notify.Notification, bool) {
	if len(s.pending) == 0 {
		return notify.Notification{}, false
	}
	n := s.pending[0]
	s.pending = s.pending[1:]
	return n, true
}

func TestNew_ParsesPageDirectories(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS(), SiteName: "AutomatePro"})
	require.NoError(t, err)

	assert.True(t, r.Has("site/home"))
	assert.True(t, r.Has("blog/post"))
	assert.False(t, r.Has("admin/dashboard"))
}

func TestNew_ParseError(t *testing.T) {
	fsys := testFS()
	fsys["site/broken.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{.Title}`)}

	_, err := New(Config{TemplatesFS: fsys})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site/broken")
}

func TestRender(t *testing.T) {
	flashes := &stubFlashes{pending: []notify.Notification{notify.Info("Message sent", "We'll be in touch")}}
	r, err := New(Config{TemplatesFS: testFS(), Flashes: flashes, SiteName: "AutomatePro"})
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err = r.Render(rec, req, http.StatusOK, "site/home", TemplateData{Title: "Home", Data: "<b>hi</b>"})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "<title>Home | AutomatePro</title>")
	assert.Contains(t, body, `<div class="toast toast-default">Message sent: We&#39;ll be in touch</div>`)
	assert.Contains(t, body, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, body, "out")
	assert.Contains(t, body, "<footer>2026</footer>")

	// The notification is shown once.
	rec = httptest.NewRecorder()
	require.NoError(t, r.Render(rec, req, http.StatusOK, "site/home", TemplateData{}))
	assert.NotContains(t, rec.Body.String(), "toast")
}

func TestRender_Status(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	require.NoError(t, r.Render(rec, req, http.StatusUnprocessableEntity, "site/home", TemplateData{}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testFS()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "site/missing", TemplateData{})
	require.Error(t, err)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestRender_DevReparses(t *testing.T) {
	fsys := testFS()
	r, err := New(Config{TemplatesFS: fsys, IsDev: true})
	require.NoError(t, err)

	fsys["site/home.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}changed{{end}}`)}

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "site/home", TemplateData{}))
	assert.Contains(t, rec.Body.String(), "changed")
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading and emphasis",
			input:    "# Title\n\nSome *text*.",
			contains: []string{"<h1", "Title</h1>", "<em>text</em>"},
		},
		{
			name:     "table extension",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "script stripped",
			input:    "hello <script>alert(1)</script>",
			excludes: []string{"<script>", "alert(1)</script>"},
		},
		{
			name:     "javascript link stripped",
			input:    "[x](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Markdown(tt.input))
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, got, e)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "hello...", truncate("hello world", 6))
	assert.Equal(t, "héllo...", truncate("héllo wörld", 5))
	assert.False(t, strings.HasSuffix(truncate("exactly", 7), "..."))
}
