// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// APIError is the JSON error envelope of the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// limiterCache holds one token bucket per key.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()
	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds drops every bucket once there are more than maxSize.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	cache *limiterCache[string]
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{cache: newLimiterCache[string](rps, burst)}
}

// Allow reports whether ip may make another request.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.cache.get(ip).Allow()
}

// retryAfter is sent with every 429 so clients back off for a full token.
func (rl *RateLimiter) retryAfter() string {
	secs := 1
	if r := float64(rl.cache.rate); r > 0 && r < 1 {
		secs = int(1/r + 0.5)
	}
	return strconv.Itoa(secs)
}

// limit runs next while the client has tokens left, and deny otherwise.
// Requests for which counts reports false pass through.
func (rl *RateLimiter) limit(counts func(*http.Request) bool, deny func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if counts(r) && !rl.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", rl.retryAfter())
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Middleware limits API routes and answers with the JSON envelope.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return rl.limit(
		func(*http.Request) bool { return true },
		func(w http.ResponseWriter, _ *http.Request) {
			WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
		})
}

// HTMLMiddleware limits public form submissions. Only POSTs count.
func (rl *RateLimiter) HTMLMiddleware() func(http.Handler) http.Handler {
	return rl.limit(
		func(r *http.Request) bool { return r.Method == http.MethodPost },
		func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("public rate limit exceeded", "ip", ClientIP(r), "path", r.URL.Path)
			http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
		})
}
