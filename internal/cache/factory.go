// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/olegiv/automatepro/internal/model"
)

// Config selects and sizes the cache backend.
type Config struct {
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New returns a Redis cache when a URL is configured and reachable, and a
// memory cache otherwise. The returned name is the backend in use.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Cacher, string) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(ctx, RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			logger.Info("using redis cache", "url", MaskRedisURL(cfg.RedisURL))
			return rc, BackendRedis
		}
		logger.Warn("redis unavailable, falling back to memory cache",
			"error", err, "url", MaskRedisURL(cfg.RedisURL), "category", model.EventCategoryCache)
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	}), BackendMemory
}

// MaskRedisURL hides the password in a Redis URL for logging.
func MaskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
