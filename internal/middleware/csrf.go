// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig configures CSRF protection. filippo.io/csrf checks Fetch
// metadata and Origin headers, so no cookie options exist.
type CSRFConfig struct {
	// AuthKey is kept for the gorilla-compatible API.
	AuthKey        []byte
	ErrorHandler   http.Handler
	TrustedOrigins []string // host[:port], never full URLs
}

// DefaultCSRFConfig trusts the local dev server in development.
func DefaultCSRFConfig(authKey []byte, isDev bool, port int) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}
	if isDev {
		p := strconv.Itoa(port)
		cfg.TrustedOrigins = []string{"localhost:" + p, "127.0.0.1:" + p}
	}
	return cfg
}

// CSRF returns middleware rejecting cross-origin unsafe requests.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = http.HandlerFunc(csrfErrorHandler)
	}
	opts := []csrf.Option{csrf.ErrorHandler(errorHandler)}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}
	return csrf.Protect(cfg.AuthKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Warn("CSRF validation failed",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		"ip", ClientIP(r),
	)
	http.Error(w, "Forbidden - CSRF validation failed", http.StatusForbidden)
}

// SkipCSRF exempts paths under any of prefixes. The API authenticates with
// bearer tokens, which a browser never attaches on its own.
func SkipCSRF(prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					r = csrf.UnsafeSkipCheck(r)
					break
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
