// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID               string
	Email            string
	PasswordHash     string
	EmailConfirmedAt sql.NullTime
	LastSignInAt     sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Profile struct {
	UserID      string
	FirstName   string
	LastName    string
	PhoneNumber string
	CreatedAt   time.Time
}

type UserRole struct {
	UserID    string
	Role      string
	CreatedAt time.Time
}

type EmailConfirmation struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type AuthSession struct {
	ID                  string
	UserID              string
	AccessTokenHash     string
	RefreshTokenHash    string
	PreviousRefreshHash string
	AccessExpiresAt     time.Time
	RefreshExpiresAt    time.Time
	UserAgent           string
	IpAddress           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Company   string
	Message   string
	CreatedAt time.Time
}

type Review struct {
	ID        string
	UserID    string
	Rating    int64
	Comment   string
	CreatedAt time.Time
}

type BlogPost struct {
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

type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullString
	IpAddress string
	Metadata  string
	CreatedAt time.Time
}
