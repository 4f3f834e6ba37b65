// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/url"
	"strconv"
)

// pageWindow is how many numbered links surround the current page.
const pageWindow = 5

// pageParam returns the 1-based ?page= value, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Pagination drives the "pagination" partial of the blog and review lists.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	Pages       []PageLink

	baseURL string
	query   url.Values
}

// PageLink is a numbered link, or an ellipsis between two of them.
type PageLink struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildPagination pages totalItems by perPage under baseURL. Query
// parameters other than page are carried into every link.
func BuildPagination(currentPage, totalItems, perPage int, baseURL string, query url.Values) Pagination {
	totalPages := max((totalItems+perPage-1)/perPage, 1)

	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		baseURL:     baseURL,
		query:       make(url.Values, len(query)),
	}
	for k, v := range query {
		if k != "page" && len(v) > 0 && v[0] != "" {
			p.query[k] = v
		}
	}

	start := max(currentPage-pageWindow/2, 1)
	end := min(start+pageWindow-1, totalPages)
	start = max(end-pageWindow+1, 1)

	if start > 1 {
		p.Pages = append(p.Pages, p.link(1))
		if start > 2 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, p.link(i))
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, p.link(totalPages))
	}
	return p
}

func (p Pagination) link(n int) PageLink {
	return PageLink{Number: n, URL: p.PageURL(n), IsCurrent: n == p.CurrentPage}
}

// PageURL returns the link to page n.
func (p Pagination) PageURL(n int) string {
	q := make(url.Values, len(p.query)+1)
	for k, v := range p.query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(n))
	return p.baseURL + "?" + q.Encode()
}

func (p Pagination) HasPrev() bool { return p.CurrentPage > 1 }
func (p Pagination) HasNext() bool { return p.CurrentPage < p.TotalPages }

func (p Pagination) PrevURL() string { return p.PageURL(p.CurrentPage - 1) }
func (p Pagination) NextURL() string { return p.PageURL(p.CurrentPage + 1) }

// ShouldShow reports whether there is more than one page.
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}
