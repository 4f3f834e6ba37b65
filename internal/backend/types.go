// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/store"
)

// RoleAdmin is the only role consulted by the site.
const RoleAdmin = "admin"

// RoleUser is granted to every account at sign-up.
const RoleUser = "user"

// User is the account attached to a session.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	ConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func userFromStore(u store.User) User {
	out := User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
	if u.EmailConfirmedAt.Valid {
		t := u.EmailConfirmedAt.Time
		out.ConfirmedAt = &t
	}
	return out
}

// Session is an authenticated session issued at sign-in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// ClientMeta describes the client a session is issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// SignUpRequest carries credentials and the profile collected at sign-up.
type SignUpRequest struct {
	Email    string
	Password string
	Profile  auth.SignUpProfile
}

// Validate trims and checks the request. Profile fields are checked before
// credentials so the first reported problem matches the form order.
func (r SignUpRequest) Validate() (SignUpRequest, error) {
	profile, err := r.Profile.Normalize()
	if err != nil {
		return r, err
	}
	r.Profile = profile
	r.Email = strings.TrimSpace(r.Email)
	if _, err := mail.ParseAddress(r.Email); err != nil || !strings.Contains(r.Email, "@") {
		return r, &auth.ValidationError{Field: "email", Message: "A valid email address is required"}
	}
	if utf8.RuneCountInString(r.Password) < auth.MinPasswordLength {
		return r, &auth.ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	return r, nil
}

// SignUpResult reports the created account.
type SignUpResult struct {
	User                 User
	ConfirmationRequired bool
}

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == PostDraft || s == PostPublished
}

// Post is a blog post record.
type Post struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Excerpt   string     `json:"excerpt"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"image_url,omitempty"`
	Status    PostStatus `json:"status"`
	AuthorID  string     `json:"author_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func postFromStore(p store.BlogPost) Post {
	return Post{
		ID:        p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		ImageURL:  p.ImageUrl,
		Status:    PostStatus(p.Status),
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// PostInput is the writable part of a post.
type PostInput struct {
	Title    string     `json:"title"`
	Excerpt  string     `json:"excerpt"`
	Content  string     `json:"content"`
	ImageURL string     `json:"image_url"`
	Status   PostStatus `json:"status"`
}

// Validate trims the fields and checks required ones. An empty status
// defaults to draft.
func (in PostInput) Validate() (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Content = strings.TrimSpace(in.Content)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Status == "" {
		in.Status = PostDraft
	}

	switch {
	case in.Title == "":
		return in, &auth.ValidationError{Field: "title", Message: "Title is required"}
	case in.Excerpt == "":
		return in, &auth.ValidationError{Field: "excerpt", Message: "Excerpt is required"}
	case in.Content == "":
		return in, &auth.ValidationError{Field: "content", Message: "Content is required"}
	case !in.Status.Valid():
		return in, &auth.ValidationError{Field: "status", Message: "Status must be draft or published"}
	case utf8.RuneCountInString(in.Title) > 200:
		return in, &auth.ValidationError{Field: "title", Message: "Title must be at most 200 characters"}
	}
	if in.ImageURL != "" {
		u, err := url.Parse(in.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return in, &auth.ValidationError{Field: "image_url", Message: "Image URL must be an http(s) address"}
		}
	}
	return in, nil
}

// ContactMessage is a message left through the contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func contactFromStore(m store.ContactMessage) ContactMessage {
	return ContactMessage{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Company:   m.Company,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// ContactInput is a contact form submission. Company is optional and kept
// exactly as given.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// Validate trims the required fields and checks them.
func (in ContactInput) Validate() (ContactInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)

	switch {
	case in.Name == "":
		return in, &auth.ValidationError{Field: "name", Message: "Name is required"}
	case in.Email == "":
		return in, &auth.ValidationError{Field: "email", Message: "Email is required"}
	case in.Phone == "":
		return in, &auth.ValidationError{Field: "phone", Message: "Phone is required"}
	case in.Message == "":
		return in, &auth.ValidationError{Field: "message", Message: "Message is required"}
	case utf8.RuneCountInString(in.Message) > 5000:
		return in, &auth.ValidationError{Field: "message", Message: "Message must be at most 5000 characters"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, &auth.ValidationError{Field: "email", Message: "A valid email address is required"}
	}
	return in, nil
}

// Review is a rating left by a signed-in user, with the author's name.
type Review struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Rating          int       `json:"rating"`
	Comment         string    `json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
	AuthorFirstName string    `json:"first_name"`
	AuthorLastName  string    `json:"last_name"`
}

// AuthorName joins the author's first and last name.
func (r Review) AuthorName() string {
	return strings.TrimSpace(r.AuthorFirstName + " " + r.AuthorLastName)
}

// ReviewInput is a review submission.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Validate checks the rating is within 1..5.
func (in ReviewInput) Validate() (ReviewInput, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Rating < 1 || in.Rating > 5 {
		return in, &auth.ValidationError{Field: "rating", Message: "Please select a rating"}
	}
	if utf8.RuneCountInString(in.Comment) > 2000 {
		return in, &auth.ValidationError{Field: "comment", Message: "Comment must be at most 2000 characters"}
	}
	return in, nil
}

// ListOptions selects a page of records, newest first.
type ListOptions struct {
	Status PostStatus // posts only; empty means every status
	Limit  int
	Offset int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (o ListOptions) bounds() (limit, offset int64) {
	l := o.Limit
	if l <= 0 {
		l = defaultListLimit
	}
	if l > maxListLimit {
		l = maxListLimit
	}
	off := o.Offset
	if off < 0 {
		off = 0
	}
	return int64(l), int64(off)
}
