// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render executes the site's HTML templates.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/olegiv/automatepro/internal/authstate"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/notify"
)

// Page directories. A page is addressed as "<dir>/<file without .html>",
// e.g. "blog/post".
var pageDirs = []string{"site", "blog", "tools", "auth", "admin"}

const baseLayout = "layouts/base.html"

// Flashes hands over the notification queued by the previous request.
type Flashes interface {
	Pop(ctx context.Context) (notify.Notification, bool)
}

// Renderer handles template rendering with caching.
type Renderer struct {
	fsys     fs.FS
	flashes  Flashes
	siteName string
	siteURL  string
	isDev    bool
	now      func() time.Time

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS fs.FS
	Flashes     Flashes
	SiteName    string
	SiteURL     string
	// IsDev re-parses templates on every render.
	IsDev bool
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		fsys:     cfg.TemplatesFS,
		flashes:  cfg.Flashes,
		siteName: cfg.SiteName,
		siteURL:  strings.TrimSuffix(cfg.SiteURL, "/"),
		isDev:    cfg.IsDev,
		now:      time.Now,
	}
	templates, err := r.parseTemplates()
	if err != nil {
		return nil, err
	}
	r.templates = templates
	return r, nil
}

// parseTemplates parses every page together with the base layout and the
// partials.
func (r *Renderer) parseTemplates() (map[string]*template.Template, error) {
	partials, err := templateFiles(r.fsys, "partials")
	if err != nil {
		return nil, fmt.Errorf("getting partials: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, dir := range pageDirs {
		pages, err := templateFiles(r.fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("getting %s templates: %w", dir, err)
		}
		for _, page := range pages {
			name := dir + "/" + strings.TrimSuffix(path.Base(page), ".html")

			files := append([]string{baseLayout}, partials...)
			files = append(files, page)

			tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(r.fsys, files...)
			if err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", name, err)
			}
			templates[name] = tmpl
		}
	}
	return templates, nil
}

// templateFiles returns the .html files in dir. A missing directory has
// none.
func templateFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		"isoDate": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"truncate": truncate,
		"markdown": Markdown,
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"seq": func(start, end int) []int {
			var result []int
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			return result
		},
		"hasPrefix": strings.HasPrefix,
	}
}

// truncate shortens s to at most length runes, adding an ellipsis.
func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:length])) + "..."
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Description string
	Data        any
	// Errors holds field validation messages keyed by field name.
	Errors map[string]string

	Flash       *notify.Notification
	Session     *backend.Session
	CurrentPath string
	CurrentYear int
	SiteName    string
	SiteURL     string
}

// SignedIn reports whether the page is rendered for a signed-in user.
func (d TemplateData) SignedIn() bool {
	return d.Session != nil
}

// Render writes the page name with status. The pending notification and
// the request's session are added to data.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}

	data.CurrentYear = r.now().Year()
	data.CurrentPath = req.URL.Path
	data.SiteName = r.siteName
	data.SiteURL = r.siteURL
	if st := authstate.FromContext(req.Context()); st != nil {
		data.Session = st.Session()
	}
	if r.flashes != nil && data.Flash == nil {
		if n, ok := r.flashes.Pop(req.Context()); ok {
			data.Flash = &n
		}
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		templates, err := r.parseTemplates()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.templates = templates
		r.mu.Unlock()
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	return tmpl, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}
