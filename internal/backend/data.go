// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/store"
	"github.com/olegiv/automatepro/internal/util"
)

// Principal is the caller a data operation runs as. The zero value is
// anonymous.
type Principal struct {
	UserID string
}

// Anonymous reports whether no user is signed in.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

// Row-level rules:
//
//	blog_posts        read published: anyone; read drafts, write: admin
//	contact_messages  insert: anyone; read: admin
//	reviews           read: anyone; insert: signed-in user, as themselves
//	events            read: admin
func (s *Service) requireAdmin(ctx context.Context, p Principal) error {
	if p.Anonymous() {
		return ErrNotAuthenticated
	}
	ok, err := s.HasRole(ctx, p.UserID, RoleAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// ListPosts returns posts newest first. Only admins may list drafts.
func (s *Service) ListPosts(ctx context.Context, p Principal, opts ListOptions) ([]Post, error) {
	limit, offset := opts.bounds()

	var (
		rows []store.BlogPost
		err  error
	)
	if opts.Status == PostPublished {
		rows, err = s.queries.ListBlogPostsByStatus(ctx, store.ListBlogPostsByStatusParams{
			Status: string(PostPublished), Limit: limit, Offset: offset,
		})
	} else {
		if err := s.requireAdmin(ctx, p); err != nil {
			return nil, err
		}
		if opts.Status == "" {
			rows, err = s.queries.ListBlogPosts(ctx, store.ListBlogPostsParams{Limit: limit, Offset: offset})
		} else {
			rows, err = s.queries.ListBlogPostsByStatus(ctx, store.ListBlogPostsByStatusParams{
				Status: string(opts.Status), Limit: limit, Offset: offset,
			})
		}
	}
	if err != nil {
		return nil, storeErr("listing posts", err)
	}

	posts := make([]Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, postFromStore(r))
	}
	return posts, nil
}

// CountPublishedPosts returns the number of published posts.
func (s *Service) CountPublishedPosts(ctx context.Context) (int64, error) {
	n, err := s.queries.CountBlogPostsByStatus(ctx, string(PostPublished))
	return n, storeErr("counting posts", err)
}

// GetPost returns a post by id. Drafts are invisible to non-admins.
func (s *Service) GetPost(ctx context.Context, p Principal, id string) (Post, error) {
	row, err := s.queries.GetBlogPostByID(ctx, id)
	if err != nil {
		return Post{}, storeErr("loading post", err)
	}
	return s.visiblePost(ctx, p, row)
}

// GetPostBySlug returns a post by slug. Drafts are invisible to non-admins.
func (s *Service) GetPostBySlug(ctx context.Context, p Principal, slug string) (Post, error) {
	row, err := s.queries.GetBlogPostBySlug(ctx, slug)
	if err != nil {
		return Post{}, storeErr("loading post", err)
	}
	return s.visiblePost(ctx, p, row)
}

func (s *Service) visiblePost(ctx context.Context, p Principal, row store.BlogPost) (Post, error) {
	if row.Status != string(PostPublished) {
		if err := s.requireAdmin(ctx, p); err != nil {
			if errors.Is(err, ErrUnavailable) {
				return Post{}, err
			}
			return Post{}, ErrNotFound
		}
	}
	return postFromStore(row), nil
}

// CreatePost inserts a post written by authorID, who must be the caller.
func (s *Service) CreatePost(ctx context.Context, p Principal, authorID string, in PostInput) (Post, error) {
	if err := s.requireAdmin(ctx, p); err != nil {
		return Post{}, err
	}
	if authorID != p.UserID {
		return Post{}, ErrForbidden
	}
	in, err := in.Validate()
	if err != nil {
		return Post{}, invalid(err)
	}

	slug, err := util.UniqueSlug(ctx, in.Title, s.queries.SlugExists)
	if err != nil {
		return Post{}, storeErr("allocating slug", err)
	}

	now := s.now()
	row, err := s.queries.CreateBlogPost(ctx, store.CreateBlogPostParams{
		ID:        uuid.NewString(),
		Slug:      slug,
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		ImageUrl:  in.ImageURL,
		Status:    string(in.Status),
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Post{}, storeErr("creating post", err)
	}
	s.notifyChange(ctx, TablePosts)
	s.logger.Info("blog post created", "category", model.EventCategoryContent, "post_id", row.ID, "user_id", p.UserID)
	return postFromStore(row), nil
}

// UpdatePost overwrites the editable fields of post id. The author and the
// slug are kept.
func (s *Service) UpdatePost(ctx context.Context, p Principal, id string, in PostInput) (Post, error) {
	if err := s.requireAdmin(ctx, p); err != nil {
		return Post{}, err
	}
	in, err := in.Validate()
	if err != nil {
		return Post{}, invalid(err)
	}
	row, err := s.queries.UpdateBlogPost(ctx, store.UpdateBlogPostParams{
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		ImageUrl:  in.ImageURL,
		Status:    string(in.Status),
		UpdatedAt: s.now(),
		ID:        id,
	})
	if err != nil {
		return Post{}, storeErr("updating post", err)
	}
	s.notifyChange(ctx, TablePosts)
	s.logger.Info("blog post updated", "category", model.EventCategoryContent, "post_id", id, "user_id", p.UserID)
	return postFromStore(row), nil
}

// DeletePost removes post id.
func (s *Service) DeletePost(ctx context.Context, p Principal, id string) error {
	if err := s.requireAdmin(ctx, p); err != nil {
		return err
	}
	n, err := s.queries.DeleteBlogPost(ctx, id)
	if err != nil {
		return storeErr("deleting post", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.notifyChange(ctx, TablePosts)
	s.logger.Info("blog post deleted", "category", model.EventCategoryContent, "post_id", id, "user_id", p.UserID)
	return nil
}

// CreateContact stores a contact form submission. Anyone may insert.
func (s *Service) CreateContact(ctx context.Context, in ContactInput) (ContactMessage, error) {
	in, err := in.Validate()
	if err != nil {
		return ContactMessage{}, invalid(err)
	}
	row, err := s.queries.CreateContactMessage(ctx, store.CreateContactMessageParams{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Message:   in.Message,
		CreatedAt: s.now(),
	})
	if err != nil {
		return ContactMessage{}, storeErr("creating contact message", err)
	}
	s.notifyChange(ctx, TableContacts)
	return contactFromStore(row), nil
}

// ListContacts returns contact messages newest first. Admin only.
func (s *Service) ListContacts(ctx context.Context, p Principal, opts ListOptions) ([]ContactMessage, error) {
	if err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	limit, offset := opts.bounds()
	rows, err := s.queries.ListContactMessages(ctx, store.ListContactMessagesParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, storeErr("listing contact messages", err)
	}
	out := make([]ContactMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, contactFromStore(r))
	}
	return out, nil
}

// CreateReview stores a review by the signed-in caller.
func (s *Service) CreateReview(ctx context.Context, p Principal, in ReviewInput) (Review, error) {
	if p.Anonymous() {
		return Review{}, ErrNotAuthenticated
	}
	in, err := in.Validate()
	if err != nil {
		return Review{}, invalid(err)
	}
	row, err := s.queries.CreateReview(ctx, store.CreateReviewParams{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		Rating:    int64(in.Rating),
		Comment:   in.Comment,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Review{}, storeErr("creating review", err)
	}
	review := Review{
		ID:        row.ID,
		UserID:    row.UserID,
		Rating:    int(row.Rating),
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
	}
	if profile, err := s.queries.GetProfile(ctx, p.UserID); err == nil {
		review.AuthorFirstName = profile.FirstName
		review.AuthorLastName = profile.LastName
	}
	s.notifyChange(ctx, TableReviews)
	s.logger.Info("review submitted", "category", model.EventCategoryReview, "user_id", p.UserID, "rating", in.Rating)
	return review, nil
}

// ListReviews returns reviews newest first with their authors' names.
func (s *Service) ListReviews(ctx context.Context, opts ListOptions) ([]Review, error) {
	limit, offset := opts.bounds()
	rows, err := s.queries.ListReviewsWithAuthor(ctx, store.ListReviewsWithAuthorParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, storeErr("listing reviews", err)
	}
	out := make([]Review, 0, len(rows))
	for _, r := range rows {
		out = append(out, Review{
			ID:              r.ID,
			UserID:          r.UserID,
			Rating:          int(r.Rating),
			Comment:         r.Comment,
			CreatedAt:       r.CreatedAt,
			AuthorFirstName: r.FirstName,
			AuthorLastName:  r.LastName,
		})
	}
	return out, nil
}

// CountReviews returns the number of reviews.
func (s *Service) CountReviews(ctx context.Context) (int64, error) {
	n, err := s.queries.CountReviews(ctx)
	return n, storeErr("counting reviews", err)
}

// ListEvents returns audit events newest first. Admin only.
func (s *Service) ListEvents(ctx context.Context, p Principal, opts ListOptions) ([]model.Event, error) {
	if err := s.requireAdmin(ctx, p); err != nil {
		return nil, err
	}
	limit, offset := opts.bounds()
	rows, err := s.queries.ListEvents(ctx, store.ListEventsParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, storeErr("listing events", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, e := range rows {
		out = append(out, model.Event{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			UserID:    e.UserID,
			IPAddress: e.IpAddress,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}
