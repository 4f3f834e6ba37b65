// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache keeps public content (published posts and recent reviews)
// in memory or in Redis.
package cache

import (
	"context"
	"time"
)

// Cacher is a byte-valued cache. Implementations are safe for concurrent
// use.
type Cacher interface {
	// Get returns ErrCacheMiss for absent or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl, or for the default TTL when ttl is 0.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Close() error
}

// StatsProvider is implemented by caches that count hits and misses.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Stats holds cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
	Size    int64   `json:"size_bytes,omitempty"`
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}

// Error is a cache error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrCacheMiss   Error = "cache miss"
	ErrCacheClosed Error = "cache closed"
)
