// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/automatepro/internal/cache"
	"github.com/olegiv/automatepro/internal/seo"
	"github.com/olegiv/automatepro/internal/tools"
)

// sitemapPostLimit caps the posts listed in the sitemap.
const sitemapPostLimit = 1000

// SEOHandler serves sitemap.xml and robots.txt.
type SEOHandler struct {
	content     *cache.Content
	siteURL     string
	disallowAll bool
	logger      *slog.Logger
}

// NewSEOHandler creates a new SEOHandler. disallowAll hides the whole site
// from crawlers, as on staging hosts.
func NewSEOHandler(content *cache.Content, siteURL string, disallowAll bool, logger *slog.Logger) *SEOHandler {
	return &SEOHandler{content: content, siteURL: siteURL, disallowAll: disallowAll, logger: logger}
}

// Sitemap handles GET /sitemap.xml.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.PublishedPosts(r.Context(), sitemapPostLimit, 0)
	if err != nil {
		logAndInternalError(w, "failed to list posts for sitemap", "error", err)
		return
	}
	entries := make([]seo.SitemapPost, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, seo.SitemapPost{Slug: p.Slug, UpdatedAt: p.UpdatedAt})
	}

	all := tools.All()
	slugs := make([]string, 0, len(all)+1)
	for _, t := range all {
		slugs = append(slugs, t.Slug)
	}
	slugs = append(slugs, "gst-calculator")

	body, err := seo.GenerateSitemap(h.siteURL, slugs, entries)
	if err != nil {
		logAndInternalError(w, "failed to build sitemap", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}

// Robots handles GET /robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write([]byte(seo.BuildRobots(seo.RobotsConfig{
		SiteURL:     h.siteURL,
		DisallowAll: h.disallowAll,
	})))
}
