// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to APP_TEST_REDIS_URL or skips.
func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("APP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("APP_TEST_REDIS_URL not set")
	}
	c, err := NewRedisCache(context.Background(), RedisOptions{
		URL:        url,
		Prefix:     "automatepro-test:" + t.Name() + ":",
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "posts:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "posts:b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "reviews:a", []byte("3"), 0))

	require.NoError(t, c.DeleteByPrefix(ctx, "posts:"))
	_, err := c.Get(ctx, "posts:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "reviews:a")
	assert.NoError(t, err)
}

func TestRedisCache_Expiry(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisOptions{})
	require.Error(t, err)

	_, err = NewRedisCache(context.Background(), RedisOptions{URL: "http://nope"})
	require.Error(t, err)
}
