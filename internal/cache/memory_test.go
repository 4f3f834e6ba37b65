// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemory(t *testing.T, maxSize int) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, MaxSize: maxSize})
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestMemoryCache_SetGet(t *testing.T) {
	c, _ := newTestMemory(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	c, _ := newTestMemory(t, 0)
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[1] = 'y'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, clock := newTestMemory(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "default", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "short", []byte("2"), 10*time.Second))

	clock.Advance(10 * time.Second)
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "default")
	assert.NoError(t, err)

	clock.Advance(50 * time.Second)
	_, err = c.Get(ctx, "default")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	c, _ := newTestMemory(t, 0)
	ctx := context.Background()

	for _, k := range []string{"posts:list:20:0", "posts:slug:hello", "reviews:list:20:0"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), 0))
	}
	require.NoError(t, c.DeleteByPrefix(ctx, "posts:"))

	_, err := c.Get(ctx, "posts:slug:hello")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "reviews:list:20:0")
	assert.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "reviews:list:20:0"))
	assert.Equal(t, 0, c.Stats().Items)
}

func TestMemoryCache_EvictsSoonestExpiry(t *testing.T) {
	c, _ := newTestMemory(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "long", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "short", []byte("2"), time.Second))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "long")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "new")
	assert.NoError(t, err)

	// Overwriting an existing key never evicts.
	require.NoError(t, c.Set(ctx, "long", []byte("4"), time.Hour))
	assert.Equal(t, 2, c.Stats().Items)
}

func TestMemoryCache_Stats(t *testing.T) {
	c, _ := newTestMemory(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("four"), 0))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "nope")

	s := c.Stats()
	assert.EqualValues(t, 2, s.Hits)
	assert.EqualValues(t, 1, s.Misses)
	assert.EqualValues(t, 1, s.Sets)
	assert.Equal(t, 1, s.Items)
	assert.EqualValues(t, 4, s.Size)
	assert.InDelta(t, 66.67, s.HitRate, 0.01)

	c.ResetStats()
	assert.Zero(t, c.Stats().Hits)
}

func TestMemoryCache_Closed(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, CleanupInterval: time.Millisecond})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	ctx := context.Background()
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheClosed)
	assert.ErrorIs(t, c.Clear(ctx), ErrCacheClosed)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c, _ := newTestMemory(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				key := fmt.Sprintf("k%d-%d", i, j%20)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				if j%50 == 0 {
					_ = c.DeleteByPrefix(ctx, fmt.Sprintf("k%d-", i))
				}
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Items, 50)
}
