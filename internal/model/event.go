// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds the audit event vocabulary shared by the logging
// handler, the event service and the admin dashboard.
package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryAccess  = "access"
	EventCategoryContent = "content"
	EventCategoryContact = "contact"
	EventCategoryReview  = "review"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)

// Event is an audit log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullString
	IPAddress string
	Metadata  string // JSON object
	CreatedAt time.Time
}

// IsProblem reports whether the event is a warning or an error.
func (e Event) IsProblem() bool {
	return e.Level == EventLevelWarning || e.Level == EventLevelError
}
