// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// CreateEventParams holds the columns written by CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent appends an entry to the event log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	if arg.CreatedAt.IsZero() {
		arg.CreatedAt = time.Now()
	}
	row := q.db.QueryRowContext(ctx,
		q.rebind(`INSERT INTO events (level, category, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		arg.Level, arg.Category, arg.Message, arg.Metadata, model.FormatTimestamp(arg.CreatedAt),
	)

	e := model.Event{
		Level:     arg.Level,
		Category:  arg.Category,
		Message:   arg.Message,
		Metadata:  arg.Metadata,
		CreatedAt: arg.CreatedAt.UTC(),
	}
	if err := row.Scan(&e.ID); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// ListEvents returns the newest events first.
func (q *Queries) ListEvents(ctx context.Context, limit, offset int) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		q.rebind(`SELECT id, level, category, message, metadata, created_at FROM events
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBefore prunes events older than cutoff.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return q.exec(ctx, "DELETE FROM events WHERE created_at < ?", model.FormatTimestamp(cutoff))
}
