// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"

	"github.com/olegiv/automatepro/internal/model"
)

// PostsTable runs blog post queries as the client's user.
type PostsTable struct{ c *Client }

func (t *PostsTable) List(ctx context.Context, opts ListOptions) ([]Post, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return nil, err
	}
	return t.c.svc.ListPosts(ctx, p, opts)
}

func (t *PostsTable) CountPublished(ctx context.Context) (int64, error) {
	return t.c.svc.CountPublishedPosts(ctx)
}

func (t *PostsTable) Get(ctx context.Context, id string) (Post, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return Post{}, err
	}
	return t.c.svc.GetPost(ctx, p, id)
}

func (t *PostsTable) GetBySlug(ctx context.Context, slug string) (Post, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return Post{}, err
	}
	return t.c.svc.GetPostBySlug(ctx, p, slug)
}

// Insert creates a post attributed to authorID.
func (t *PostsTable) Insert(ctx context.Context, authorID string, in PostInput) (Post, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return Post{}, err
	}
	return t.c.svc.CreatePost(ctx, p, authorID, in)
}

func (t *PostsTable) Update(ctx context.Context, id string, in PostInput) (Post, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return Post{}, err
	}
	return t.c.svc.UpdatePost(ctx, p, id, in)
}

func (t *PostsTable) Delete(ctx context.Context, id string) error {
	p, err := t.c.principal(ctx)
	if err != nil {
		return err
	}
	return t.c.svc.DeletePost(ctx, p, id)
}

// ContactsTable runs contact message queries as the client's user.
type ContactsTable struct{ c *Client }

func (t *ContactsTable) Insert(ctx context.Context, in ContactInput) (ContactMessage, error) {
	return t.c.svc.CreateContact(ctx, in)
}

func (t *ContactsTable) List(ctx context.Context, opts ListOptions) ([]ContactMessage, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return nil, err
	}
	return t.c.svc.ListContacts(ctx, p, opts)
}

// ReviewsTable runs review queries as the client's user.
type ReviewsTable struct{ c *Client }

func (t *ReviewsTable) Insert(ctx context.Context, in ReviewInput) (Review, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return Review{}, err
	}
	return t.c.svc.CreateReview(ctx, p, in)
}

func (t *ReviewsTable) List(ctx context.Context, opts ListOptions) ([]Review, error) {
	return t.c.svc.ListReviews(ctx, opts)
}

func (t *ReviewsTable) Count(ctx context.Context) (int64, error) {
	return t.c.svc.CountReviews(ctx)
}

// EventsTable reads the audit log as the client's user.
type EventsTable struct{ c *Client }

func (t *EventsTable) List(ctx context.Context, opts ListOptions) ([]model.Event, error) {
	p, err := t.c.principal(ctx)
	if err != nil {
		return nil, err
	}
	return t.c.svc.ListEvents(ctx, p, opts)
}
