// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that also records warnings and
// errors in the audit event log shown on the admin dashboard.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/store"
)

// Attribute keys lifted out of the metadata into their own columns.
const (
	AttrCategory = "category"
	AttrUserID   = "user_id"
	AttrIP       = "ip"
)

// EventLogHandler wraps another handler and writes records at or above its
// level to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
	group   string
}

// NewEventLogHandler records WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel records level and above.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.writeEvent(ctx, r)
	}
	return nil
}

func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.inner = h.inner.WithGroup(name)
	if c.group == "" {
		c.group = name
	} else {
		c.group += "." + name
	}
	return &c
}

// writeEvent stores r. Failures are dropped: logging them would recurse.
func (h *EventLogHandler) writeEvent(ctx context.Context, r slog.Record) {
	var (
		category, ip string
		userID       sql.NullString
		meta         = make(map[string]any)
	)
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case AttrCategory:
			category = a.Value.String()
		case AttrUserID:
			if v := a.Value.String(); v != "" {
				userID = sql.NullString{String: v, Valid: true}
			}
		case AttrIP:
			ip = a.Value.String()
		default:
			key := a.Key
			if h.group != "" {
				key = h.group + "." + key
			}
			meta[key] = attrValue(a.Value)
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if category == "" {
		category = inferCategory(r.Message)
	}
	metadata := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}

	// The event is kept even when the request that logged it is cancelled.
	_, _ = h.queries.CreateEvent(context.WithoutCancel(ctx), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    userID,
		IpAddress: ip,
		Metadata:  metadata,
		CreatedAt: r.Time.UTC(),
	})
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindGroup:
		m := make(map[string]any)
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	default:
		return v.String()
	}
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when none was given.
func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("sign in", "sign-in", "signin", "sign out", "sign up", "login", "password", "session", "token"):
		return model.EventCategoryAuth
	case has("role", "access", "permission", "forbidden"):
		return model.EventCategoryAccess
	case has("post", "blog", "slug"):
		return model.EventCategoryContent
	case has("contact", "mail"):
		return model.EventCategoryContact
	case has("review"):
		return model.EventCategoryReview
	case has("cache", "redis"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
