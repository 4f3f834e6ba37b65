// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds sitemap.xml and robots.txt.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Valid change frequency values.
const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// StaticPage is a marketing page listed in the sitemap.
type StaticPage struct {
	Path       string // "/about"
	ChangeFreq ChangeFreq
	Priority   string
}

// StaticPages are the public pages that exist regardless of content.
var StaticPages = []StaticPage{
	{Path: "/about", ChangeFreq: ChangeFreqMonthly, Priority: "0.7"},
	{Path: "/use-cases", ChangeFreq: ChangeFreqMonthly, Priority: "0.7"},
	{Path: "/blog", ChangeFreq: ChangeFreqDaily, Priority: "0.8"},
	{Path: "/reviews", ChangeFreq: ChangeFreqWeekly, Priority: "0.6"},
	{Path: "/contact", ChangeFreq: ChangeFreqMonthly, Priority: "0.6"},
	{Path: "/tools", ChangeFreq: ChangeFreqMonthly, Priority: "0.7"},
}

// SitemapPost contains data needed to add a blog post to the sitemap.
type SitemapPost struct {
	Slug      string
	UpdatedAt time.Time
}

// SitemapBuilder builds sitemap XML.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder.
func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{
		siteURL: strings.TrimSuffix(siteURL, "/"),
		urls:    make([]SitemapURL, 0),
	}
}

// AddHomepage adds the homepage to the sitemap.
func (b *SitemapBuilder) AddHomepage() {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + "/",
		ChangeFreq: ChangeFreqDaily,
		Priority:   "1.0",
	})
}

// AddStatic adds a marketing page.
func (b *SitemapBuilder) AddStatic(p StaticPage) {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + p.Path,
		ChangeFreq: p.ChangeFreq,
		Priority:   p.Priority,
	})
}

// AddTool adds a tool page.
func (b *SitemapBuilder) AddTool(slug string) {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + "/tools/" + slug,
		ChangeFreq: ChangeFreqMonthly,
		Priority:   "0.5",
	})
}

// AddPost adds a published blog post.
func (b *SitemapBuilder) AddPost(post SitemapPost) {
	url := SitemapURL{
		Loc:        b.siteURL + "/blog/" + post.Slug,
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.8",
	}
	if !post.UpdatedAt.IsZero() {
		url.LastMod = post.UpdatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, url)
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	sitemap := Sitemap{
		XMLNS: XMLNamespace,
		URLs:  b.urls,
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(output, xmlBytes...), nil
}

// GenerateSitemap lists the homepage, the static pages, the tool pages and
// the given posts.
func GenerateSitemap(siteURL string, toolSlugs []string, posts []SitemapPost) ([]byte, error) {
	builder := NewSitemapBuilder(siteURL)
	builder.AddHomepage()
	for _, p := range StaticPages {
		builder.AddStatic(p)
	}
	for _, slug := range toolSlugs {
		builder.AddTool(slug)
	}
	for _, p := range posts {
		builder.AddPost(p)
	}
	return builder.Build()
}
