// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/model"
)

// PublicSource reads the content anyone may see.
type PublicSource interface {
	ListPosts(ctx context.Context, p backend.Principal, opts backend.ListOptions) ([]backend.Post, error)
	GetPostBySlug(ctx context.Context, p backend.Principal, slug string) (backend.Post, error)
	CountPublishedPosts(ctx context.Context) (int64, error)
	ListReviews(ctx context.Context, opts backend.ListOptions) ([]backend.Review, error)
	CountReviews(ctx context.Context) (int64, error)
}

// Key prefixes.
const (
	prefixPosts   = "posts:"
	prefixReviews = "reviews:"
)

// Content caches published posts and reviews. Drafts never pass through
// it: every read runs as the anonymous user.
//
// Each prefix has a generation bumped by Invalidate. A load that started
// before an invalidation does not keep its result in the cache.
type Content struct {
	cache   Cacher
	src     PublicSource
	logger  *slog.Logger
	posts   *Typed[[]backend.Post]
	post    *Typed[backend.Post]
	count   *Typed[int64]
	reviews *Typed[[]backend.Review]

	postsGen   atomic.Uint64
	reviewsGen atomic.Uint64
}

// NewContent caches src in c for ttl.
func NewContent(c Cacher, src PublicSource, ttl time.Duration, logger *slog.Logger) *Content {
	return &Content{
		cache:   c,
		src:     src,
		logger:  logger,
		posts:   NewTyped[[]backend.Post](c, ttl),
		post:    NewTyped[backend.Post](c, ttl),
		count:   NewTyped[int64](c, ttl),
		reviews: NewTyped[[]backend.Review](c, ttl),
	}
}

// PublishedPosts returns a page of published posts, newest first.
func (c *Content) PublishedPosts(ctx context.Context, limit, offset int) ([]backend.Post, error) {
	key := fmt.Sprintf("%slist:%d:%d", prefixPosts, limit, offset)
	return loadFresh(ctx, c, c.posts, prefixPosts, key, func(ctx context.Context) ([]backend.Post, error) {
		return c.src.ListPosts(ctx, backend.Principal{}, backend.ListOptions{
			Status: backend.PostPublished, Limit: limit, Offset: offset,
		})
	})
}

// PublishedCount returns the number of published posts.
func (c *Content) PublishedCount(ctx context.Context) (int64, error) {
	return loadFresh(ctx, c, c.count, prefixPosts, prefixPosts+"count", c.src.CountPublishedPosts)
}

// PublishedPost returns the published post with slug. Missing and draft
// posts are not cached.
func (c *Content) PublishedPost(ctx context.Context, slug string) (backend.Post, error) {
	return loadFresh(ctx, c, c.post, prefixPosts, prefixPosts+"slug:"+slug, func(ctx context.Context) (backend.Post, error) {
		return c.src.GetPostBySlug(ctx, backend.Principal{}, slug)
	})
}

// Reviews returns a page of reviews with author names, newest first.
func (c *Content) Reviews(ctx context.Context, limit, offset int) ([]backend.Review, error) {
	key := fmt.Sprintf("%slist:%d:%d", prefixReviews, limit, offset)
	return loadFresh(ctx, c, c.reviews, prefixReviews, key, func(ctx context.Context) ([]backend.Review, error) {
		return c.src.ListReviews(ctx, backend.ListOptions{Limit: limit, Offset: offset})
	})
}

// ReviewCount returns the number of reviews.
func (c *Content) ReviewCount(ctx context.Context) (int64, error) {
	return loadFresh(ctx, c, c.count, prefixReviews, prefixReviews+"count", c.src.CountReviews)
}

// Invalidate drops everything cached for table. It has the signature of a
// backend.OnChange listener.
func (c *Content) Invalidate(ctx context.Context, table string) {
	var prefix string
	switch table {
	case backend.TablePosts:
		prefix = prefixPosts
	case backend.TableReviews:
		prefix = prefixReviews
	default:
		return
	}
	c.generation(prefix).Add(1)
	if err := c.cache.DeleteByPrefix(ctx, prefix); err != nil {
		c.logger.Warn("cache invalidation failed", "error", err, "table", table, "category", model.EventCategoryCache)
	}
}

// Clear drops all cached content.
func (c *Content) Clear(ctx context.Context) error {
	c.postsGen.Add(1)
	c.reviewsGen.Add(1)
	return c.cache.Clear(ctx)
}

func (c *Content) generation(prefix string) *atomic.Uint64 {
	if prefix == prefixReviews {
		return &c.reviewsGen
	}
	return &c.postsGen
}

// loadFresh is Typed.GetOrLoad that drops a result loaded across an
// invalidation of prefix. Invalidate bumps the generation before deleting,
// so a value stored after that delete is caught by the second check.
func loadFresh[T any](ctx context.Context, c *Content, t *Typed[T], prefix, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	gen := c.generation(prefix)
	before := gen.Load()
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if gen.Load() != before {
		return v, nil
	}
	_ = t.Set(ctx, key, v)
	if gen.Load() != before {
		_ = t.cache.Delete(ctx, key)
	}
	return v, nil
}

// Stats returns the underlying cache's counters, if it keeps any.
func (c *Content) Stats() (Stats, bool) {
	sp, ok := c.cache.(StatsProvider)
	if !ok {
		return Stats{}, false
	}
	return sp.Stats(), true
}
