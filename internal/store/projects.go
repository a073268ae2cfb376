// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/model"
)

const projectColumns = "id, title, description, long_desc, tools, media, created_at"

var projectOrderColumns = []string{"created_at", "title"}

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	var tools, media, createdAt string
	if err := row.Scan(&p.ID, &p.Title, &p.ShortDescription, &p.LongDescription, &tools, &media, &createdAt); err != nil {
		return model.Project{}, err
	}

	var err error
	if p.Tools, err = decodeTools(tools); err != nil {
		return model.Project{}, err
	}
	if p.Media, err = decodeMedia(media); err != nil {
		return model.Project{}, err
	}
	if p.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// ListProjects returns every karya row in the given order.
func (q *Queries) ListProjects(ctx context.Context, order Order) ([]model.Project, error) {
	clause, err := order.clause(projectOrderColumns...)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM karya"+clause)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// GetProject returns one karya row or sql.ErrNoRows.
func (q *Queries) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := q.db.QueryRowContext(ctx, q.rebind("SELECT "+projectColumns+" FROM karya WHERE id = ?"), id)
	return scanProject(row)
}

// CreateProject inserts p under a new id and returns the stored row.
func (q *Queries) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	tools, media, err := encodeProjectColumns(p)
	if err != nil {
		return model.Project{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = q.clock.now()
	_, err = q.exec(ctx, "INSERT INTO karya ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Title, p.ShortDescription, p.LongDescription, tools, media, model.FormatTimestamp(p.CreatedAt),
	)
	if err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// UpdateProject overwrites the editable columns of row p.ID.
func (q *Queries) UpdateProject(ctx context.Context, p model.Project) (int64, error) {
	tools, media, err := encodeProjectColumns(p)
	if err != nil {
		return 0, err
	}
	return q.exec(ctx, `UPDATE karya SET title = ?, description = ?, long_desc = ?, tools = ?, media = ?
		WHERE id = ?`,
		p.Title, p.ShortDescription, p.LongDescription, tools, media, p.ID,
	)
}

// DeleteProject removes a row and reports how many rows were removed.
func (q *Queries) DeleteProject(ctx context.Context, id string) (int64, error) {
	return q.deleteByID(ctx, "karya", id)
}

func encodeProjectColumns(p model.Project) (tools, media string, err error) {
	if tools, err = encodeJSON(p.Tools); err != nil {
		return "", "", fmt.Errorf("encoding tools: %w", err)
	}
	if media, err = encodeJSON(p.Media); err != nil {
		return "", "", fmt.Errorf("encoding media: %w", err)
	}
	return tools, media, nil
}
