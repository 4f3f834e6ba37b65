// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/automatepro/internal/model"
)

// LoginProtection combines a per-IP rate limit on sign-in with a
// per-account lockout after repeated failures.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	mu             sync.Mutex
	failedAttempts map[string]*loginAttempt

	maxFailedAttempts int
	lockoutDuration   time.Duration // doubles with each lockout, capped at a day
	attemptWindow     time.Duration
	now               func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig configures LoginProtection. Zero fields take the
// defaults.
type LoginProtectionConfig struct {
	IPRateLimit       float64 // sign-in requests per second per IP
	IPBurst           int
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	AttemptWindow     time.Duration
	CleanupInterval   time.Duration
}

// DefaultLoginProtectionConfig allows a burst of 5 then one sign-in every
// two seconds, and locks an account for 15 minutes after 5 failures.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}
}

const maxLockout = 24 * time.Hour

// NewLoginProtection starts a cleanup goroutine that runs until Close.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	lp := &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		failedAttempts:    make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
	go lp.cleanup(cfg.CleanupInterval)
	return lp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckIPRateLimit reports whether ip may attempt another sign-in.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked returns whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	attempt, ok := lp.failedAttempts[normalizeEmail(email)]
	if !ok {
		return false, 0
	}
	if now := lp.now(); now.Before(attempt.lockedUntil) {
		return true, attempt.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailedAttempt counts a failure and reports whether it locked the
// account, and for how long.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	email = normalizeEmail(email)
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	attempt, ok := lp.failedAttempts[email]
	if !ok || now.Sub(attempt.firstFailed) > lp.attemptWindow {
		if !ok {
			attempt = &loginAttempt{}
			lp.failedAttempts[email] = attempt
		}
		attempt.count = 1
		attempt.firstFailed = now
	} else {
		attempt.count++
	}

	if attempt.count < lp.maxFailedAttempts {
		return false, 0
	}

	d := lp.lockoutDuration
	for i := 0; i < attempt.lockouts && d < maxLockout; i++ {
		d *= 2
	}
	d = min(d, maxLockout)
	attempt.lockedUntil = now.Add(d)
	attempt.lockouts++
	attempt.count = 0

	slog.Warn("account locked after failed sign-ins",
		"email", email, "lockouts", attempt.lockouts, "duration", d, "category", model.EventCategoryAuth)
	return true, d
}

// RecordSuccessfulLogin forgets the failures of email.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.mu.Lock()
	delete(lp.failedAttempts, normalizeEmail(email))
	lp.mu.Unlock()
}

// RemainingAttempts returns how many failures are left before a lockout.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	attempt, ok := lp.failedAttempts[normalizeEmail(email)]
	if !ok || lp.now().Sub(attempt.firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-attempt.count, 0)
}

func (lp *LoginProtection) cleanup(interval time.Duration) {
	defer close(lp.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lp.cleanupStaleEntries()
		case <-lp.stop:
			return
		}
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared sign-in rate limiters due to size")
	}

	now := lp.now()
	lp.mu.Lock()
	for email, attempt := range lp.failedAttempts {
		if now.After(attempt.lockedUntil) && now.Sub(attempt.firstFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, email)
		}
	}
	lp.mu.Unlock()
}

// Close stops the cleanup goroutine.
func (lp *LoginProtection) Close() {
	lp.once.Do(func() { close(lp.stop) })
	<-lp.done
}

// Middleware rate limits sign-in POSTs per IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := ClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("sign-in rate limit exceeded", "ip", ip, "category", model.EventCategoryAuth)
				http.Error(w, "Too many sign-in attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
