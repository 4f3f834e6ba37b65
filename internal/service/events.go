// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds site services that sit beside the auth backend:
// the audit event log.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/store"
)

// CountryLookup maps a client address to an ISO country code.
type CountryLookup interface {
	Country(ip string) string
}

// EventService writes audit events.
type EventService struct {
	queries   *store.Queries
	now       func() time.Time
	countries CountryLookup
}

// EventOption configures an EventService.
type EventOption func(*EventService)

// WithCountryLookup adds the client country to auth events.
func WithCountryLookup(l CountryLookup) EventOption {
	return func(s *EventService) { s.countries = l }
}

// NewEventService creates an EventService over db.
func NewEventService(db *sql.DB, opts ...EventOption) *EventService {
	s := &EventService{
		queries: store.New(db),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogEvent creates an event. An empty userID is stored as NULL.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, userID, ipAddress string, metadata map[string]any) error {
	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    sql.NullString{String: userID, Valid: userID != ""},
		IpAddress: ipAddress,
		Metadata:  metadataJSON,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "message", message)
		return fmt.Errorf("logging event: %w", err)
	}
	return nil
}

// LogAuthEvent records a sign-in, sign-up or sign-out. The browser and OS
// parsed from userAgent are added to metadata, and the country when a
// lookup is configured.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, userID, ipAddress, userAgent string, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any, 4)
	}
	if userAgent != "" {
		ua := parseUserAgent(userAgent)
		metadata["browser"] = ua.Browser
		metadata["os"] = ua.OS
		metadata["device"] = ua.DeviceType
	}
	if s.countries != nil {
		if c := s.countries.Country(ipAddress); c != "" {
			metadata["country"] = c
		}
	}
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogAccessEvent records a denied or failed role check.
func (s *EventService) LogAccessEvent(ctx context.Context, level, message, userID, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAccess, message, userID, ipAddress, metadata)
}

// DeleteOldEvents removes events older than olderThan and returns how many
// were deleted.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteOldEvents(ctx, s.now().UTC().Add(-olderThan))
}

// ParsedUA is the part of a user agent kept with auth events.
type ParsedUA struct {
	Browser    string
	OS         string
	DeviceType string
}

func parseUserAgent(s string) ParsedUA {
	ua := useragent.Parse(s)
	res := ParsedUA{Browser: ua.Name, OS: ua.OS}
	if res.Browser == "" {
		res.Browser = "Unknown"
	}
	if res.OS == "" {
		res.OS = "Unknown"
	}
	switch {
	case ua.Mobile:
		res.DeviceType = "mobile"
	case ua.Tablet:
		res.DeviceType = "tablet"
	case ua.Bot:
		res.DeviceType = "bot"
	default:
		res.DeviceType = "desktop"
	}
	return res
}
