// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const createEvent = `-- name: CreateEvent :execlastid
INSERT INTO events (level, category, message, user_id, ip_address, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullString
	IpAddress string
	Metadata  string
	CreatedAt time.Time
}

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var e Event
	err := row.Scan(
		&e.ID,
		&e.Level,
		&e.Category,
		&e.Message,
		&e.UserID,
		&e.IpAddress,
		&e.Metadata,
		&e.CreatedAt,
	)
	return e, err
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.UserID,
		arg.IpAddress,
		arg.Metadata,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const listEvents = `-- name: ListEvents :many
SELECT id, level, category, message, user_id, ip_address, metadata, created_at
FROM events ORDER BY id DESC LIMIT ? OFFSET ?`

type ListEventsParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const deleteOldEvents = `-- name: DeleteOldEvents :execrows
DELETE FROM events WHERE created_at < ?`

func (q *Queries) DeleteOldEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteOldEvents, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
