// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed stores values of T as JSON in a Cacher.
type Typed[T any] struct {
	cache Cacher
	ttl   time.Duration
}

// NewTyped wraps cache. A zero ttl uses the cache's default.
func NewTyped[T any](cache Cacher, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: cache, ttl: ttl}
}

// Get returns the value at key. Entries that no longer decode are treated
// as misses.
func (c *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

func (c *Typed[T]) Set(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, data, c.ttl)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// A failing cache never fails the call.
func (c *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = c.Set(ctx, key, v)
	return v, nil
}
