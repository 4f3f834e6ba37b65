// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		isDev    bool
		wantHSTS string
	}{
		{"production", false, "max-age=31536000; includeSubDomains"},
		{"development", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := SecurityHeaders(DefaultSecurityHeadersConfig(tt.isDev))(okHandler())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			hdr := rec.Header()
			assert.Equal(t, tt.wantHSTS, hdr.Get("Strict-Transport-Security"))
			assert.Contains(t, hdr.Get("Content-Security-Policy"), "default-src 'self'")
			assert.Contains(t, hdr.Get("Content-Security-Policy"), "frame-ancestors 'none'")
			assert.Equal(t, "DENY", hdr.Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", hdr.Get("X-Content-Type-Options"))
			assert.Equal(t, "strict-origin-when-cross-origin", hdr.Get("Referrer-Policy"))
			assert.Contains(t, hdr.Get("Permissions-Policy"), "camera=()")
		})
	}
}

func TestSecurityHeadersExcludePaths(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	cfg.ExcludePaths = []string{"/metrics"}
	h := SecurityHeaders(cfg)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestBuildCSP(t *testing.T) {
	got := buildCSP(map[string]string{
		"zzz-custom":  "x",
		"script-src":  "'self'",
		"default-src": "'none'",
		"aaa-custom":  "y",
	})
	assert.Equal(t, "default-src 'none'; script-src 'self'; aaa-custom y; zzz-custom x", got)
}

func TestBuildPermissionsPolicy(t *testing.T) {
	assert.Equal(t, "camera=(), usb=()", buildPermissionsPolicy(map[string]string{"usb": "()", "camera": "()"}))
}
