// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/model"
)

const experienceColumns = "id, title, company, year_start, year_end, description, created_at"

var experienceOrderColumns = []string{"created_at", "title", "company", "year_start", "year_end"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperience(row rowScanner) (model.Experience, error) {
	var e model.Experience
	var createdAt string
	if err := row.Scan(&e.ID, &e.Title, &e.Company, &e.YearStart, &e.YearEnd, &e.Description, &createdAt); err != nil {
		return model.Experience{}, err
	}
	t, err := model.ParseTimestamp(createdAt)
	if err != nil {
		return model.Experience{}, err
	}
	e.CreatedAt = t
	return e, nil
}

// ListExperiences returns every experience row in the given order.
func (q *Queries) ListExperiences(ctx context.Context, order Order) ([]model.Experience, error) {
	clause, err := order.clause(experienceOrderColumns...)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, "SELECT "+experienceColumns+" FROM experience"+clause)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []model.Experience{}
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning experience: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// GetExperience returns one experience row or sql.ErrNoRows.
func (q *Queries) GetExperience(ctx context.Context, id string) (model.Experience, error) {
	row := q.db.QueryRowContext(ctx, q.rebind("SELECT "+experienceColumns+" FROM experience WHERE id = ?"), id)
	return scanExperience(row)
}

// CreateExperience inserts e under a new id and returns the stored row.
func (q *Queries) CreateExperience(ctx context.Context, e model.Experience) (model.Experience, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = q.clock.now()
	_, err := q.exec(ctx, "INSERT INTO experience ("+experienceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Title, e.Company, e.YearStart, e.YearEnd, e.Description, model.FormatTimestamp(e.CreatedAt),
	)
	if err != nil {
		return model.Experience{}, err
	}
	return e, nil
}

// UpdateExperience overwrites the editable columns of row e.ID.
func (q *Queries) UpdateExperience(ctx context.Context, e model.Experience) (int64, error) {
	return q.exec(ctx, `UPDATE experience SET title = ?, company = ?, year_start = ?, year_end = ?, description = ?
		WHERE id = ?`,
		e.Title, e.Company, e.YearStart, e.YearEnd, e.Description, e.ID,
	)
}

// DeleteExperience removes a row and reports how many rows were removed.
func (q *Queries) DeleteExperience(ctx context.Context, id string) (int64, error) {
	return q.deleteByID(ctx, "experience", id)
}
