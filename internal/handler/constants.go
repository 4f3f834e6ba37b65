// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	RouteRoot     = "/"
	RouteAbout    = "/about"
	RouteUseCases = "/use-cases"
	RouteBlog     = "/blog"
	RouteReviews  = "/reviews"
	RouteContact  = "/contact"
	RouteTools    = "/tools"
	RouteGST      = "/tools/gst-calculator"
	RouteAuth     = "/auth"
	RouteAdmin    = "/admin"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"
)

// Page sizes.
const (
	homeReviews    = 3
	homePosts      = 3
	blogPerPage    = 9
	reviewsPerPage = 12
	adminListLimit = 50
)
