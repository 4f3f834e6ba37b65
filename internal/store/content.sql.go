// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Contact messages

const createContactMessage = `-- name: CreateContactMessage :exec
INSERT INTO contact_messages (id, name, email, phone, company, message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateContactMessageParams struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Company   string
	Message   string
	CreatedAt time.Time
}

func scanContactMessage(row interface{ Scan(...any) error }) (ContactMessage, error) {
	var m ContactMessage
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Company, &m.Message, &m.CreatedAt)
	return m, err
}

func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (ContactMessage, error) {
	if _, err := q.db.ExecContext(ctx, createContactMessage,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.Message,
		arg.CreatedAt,
	); err != nil {
		return ContactMessage{}, err
	}
	return q.GetContactMessage(ctx, arg.ID)
}

const getContactMessage = `-- name: GetContactMessage :one
SELECT id, name, email, phone, company, message, created_at FROM contact_messages WHERE id = ?`

func (q *Queries) GetContactMessage(ctx context.Context, id string) (ContactMessage, error) {
	return scanContactMessage(q.db.QueryRowContext(ctx, getContactMessage, id))
}

const listContactMessages = `-- name: ListContactMessages :many
SELECT id, name, email, phone, company, message, created_at FROM contact_messages
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

type ListContactMessagesParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListContactMessages(ctx context.Context, arg ListContactMessagesParams) ([]ContactMessage, error) {
	rows, err := q.db.QueryContext(ctx, listContactMessages, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ContactMessage
	for rows.Next() {
		m, err := scanContactMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Reviews

const createReview = `-- name: CreateReview :exec
INSERT INTO reviews (id, user_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`

type CreateReviewParams struct {
	ID        string
	UserID    string
	Rating    int64
	Comment   string
	CreatedAt time.Time
}

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	if _, err := q.db.ExecContext(ctx, createReview, arg.ID, arg.UserID, arg.Rating, arg.Comment, arg.CreatedAt); err != nil {
		return Review{}, err
	}
	return q.GetReview(ctx, arg.ID)
}

const getReview = `-- name: GetReview :one
SELECT id, user_id, rating, comment, created_at FROM reviews WHERE id = ?`

func (q *Queries) GetReview(ctx context.Context, id string) (Review, error) {
	var r Review
	err := q.db.QueryRowContext(ctx, getReview, id).
		Scan(&r.ID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt)
	return r, err
}

const listReviewsWithAuthor = `-- name: ListReviewsWithAuthor :many
SELECT r.id, r.user_id, r.rating, r.comment, r.created_at,
       COALESCE(p.first_name, ''), COALESCE(p.last_name, '')
FROM reviews r
LEFT JOIN profiles p ON p.user_id = r.user_id
ORDER BY r.created_at DESC, r.rowid DESC
LIMIT ? OFFSET ?`

type ListReviewsWithAuthorParams struct {
	Limit  int64
	Offset int64
}

type ListReviewsWithAuthorRow struct {
	ID        string
	UserID    string
	Rating    int64
	Comment   string
	CreatedAt time.Time
	FirstName string
	LastName  string
}

func (q *Queries) ListReviewsWithAuthor(ctx context.Context, arg ListReviewsWithAuthorParams) ([]ListReviewsWithAuthorRow, error) {
	rows, err := q.db.QueryContext(ctx, listReviewsWithAuthor, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ListReviewsWithAuthorRow
	for rows.Next() {
		var i ListReviewsWithAuthorRow
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Rating,
			&i.Comment,
			&i.CreatedAt,
			&i.FirstName,
			&i.LastName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countReviews = `-- name: CountReviews :one
SELECT COUNT(*) FROM reviews`

func (q *Queries) CountReviews(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countReviews).Scan(&count)
	return count, err
}

// Blog posts

const blogPostColumns = `id, slug, title, excerpt, content, image_url, status, author_id, created_at, updated_at`

func scanBlogPost(row interface{ Scan(...any) error }) (BlogPost, error) {
	var p BlogPost
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Excerpt,
		&p.Content,
		&p.ImageUrl,
		&p.Status,
		&p.AuthorID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanBlogPosts(ctx context.Context, db DBTX, query string, args ...any) ([]BlogPost, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []BlogPost
	for rows.Next() {
		p, err := scanBlogPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createBlogPost = `-- name: CreateBlogPost :exec
INSERT INTO blog_posts (id, slug, title, excerpt, content, image_url, status, author_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateBlogPostParams struct {
	ID        string
	Slug      string
	Title     string
	Excerpt   string
	Content   string
	ImageUrl  string
	Status    string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateBlogPost(ctx context.Context, arg CreateBlogPostParams) (BlogPost, error) {
	if _, err := q.db.ExecContext(ctx, createBlogPost,
		arg.ID,
		arg.Slug,
		arg.Title,
		arg.Excerpt,
		arg.Content,
		arg.ImageUrl,
		arg.Status,
		arg.AuthorID,
		arg.CreatedAt,
		arg.UpdatedAt,
	); err != nil {
		return BlogPost{}, err
	}
	return q.GetBlogPostByID(ctx, arg.ID)
}

const updateBlogPost = `-- name: UpdateBlogPost :execrows
UPDATE blog_posts
SET title = ?, excerpt = ?, content = ?, image_url = ?, status = ?, updated_at = ?
WHERE id = ?`

type UpdateBlogPostParams struct {
	Title     string
	Excerpt   string
	Content   string
	ImageUrl  string
	Status    string
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) UpdateBlogPost(ctx context.Context, arg UpdateBlogPostParams) (BlogPost, error) {
	result, err := q.db.ExecContext(ctx, updateBlogPost,
		arg.Title,
		arg.Excerpt,
		arg.Content,
		arg.ImageUrl,
		arg.Status,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return BlogPost{}, err
	}
	if n, err := result.RowsAffected(); err != nil {
		return BlogPost{}, err
	} else if n == 0 {
		return BlogPost{}, sql.ErrNoRows
	}
	return q.GetBlogPostByID(ctx, arg.ID)
}

const getBlogPostByID = `-- name: GetBlogPostByID :one
SELECT ` + blogPostColumns + ` FROM blog_posts WHERE id = ?`

func (q *Queries) GetBlogPostByID(ctx context.Context, id string) (BlogPost, error) {
	return scanBlogPost(q.db.QueryRowContext(ctx, getBlogPostByID, id))
}

const getBlogPostBySlug = `-- name: GetBlogPostBySlug :one
SELECT ` + blogPostColumns + ` FROM blog_posts WHERE slug = ?`

func (q *Queries) GetBlogPostBySlug(ctx context.Context, slug string) (BlogPost, error) {
	return scanBlogPost(q.db.QueryRowContext(ctx, getBlogPostBySlug, slug))
}

const slugExists = `-- name: SlugExists :one
SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = ?)`

func (q *Queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists int64
	err := q.db.QueryRowContext(ctx, slugExists, slug).Scan(&exists)
	return exists == 1, err
}

const listBlogPosts = `-- name: ListBlogPosts :many
SELECT ` + blogPostColumns + ` FROM blog_posts
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

type ListBlogPostsParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListBlogPosts(ctx context.Context, arg ListBlogPostsParams) ([]BlogPost, error) {
	return scanBlogPosts(ctx, q.db, listBlogPosts, arg.Limit, arg.Offset)
}

const listBlogPostsByStatus = `-- name: ListBlogPostsByStatus :many
SELECT ` + blogPostColumns + ` FROM blog_posts
WHERE status = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

type ListBlogPostsByStatusParams struct {
	Status string
	Limit  int64
	Offset int64
}

func (q *Queries) ListBlogPostsByStatus(ctx context.Context, arg ListBlogPostsByStatusParams) ([]BlogPost, error) {
	return scanBlogPosts(ctx, q.db, listBlogPostsByStatus, arg.Status, arg.Limit, arg.Offset)
}

const countBlogPostsByStatus = `-- name: CountBlogPostsByStatus :one
SELECT COUNT(*) FROM blog_posts WHERE status = ?`

func (q *Queries) CountBlogPostsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countBlogPostsByStatus, status).Scan(&count)
	return count, err
}

const deleteBlogPost = `-- name: DeleteBlogPost :execrows
DELETE FROM blog_posts WHERE id = ?`

func (q *Queries) DeleteBlogPost(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBlogPost, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
