// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/model"
)

const skillColumns = "id, name, level, created_at"

var skillOrderColumns = []string{"created_at", "name", "level"}

func scanSkill(row rowScanner) (model.Skill, error) {
	var s model.Skill
	var createdAt string
	if err := row.Scan(&s.ID, &s.Name, &s.Level, &createdAt); err != nil {
		return model.Skill{}, err
	}
	t, err := model.ParseTimestamp(createdAt)
	if err != nil {
		return model.Skill{}, err
	}
	s.CreatedAt = t
	return s, nil
}

// ListSkills returns every skill row in the given order.
func (q *Queries) ListSkills(ctx context.Context, order Order) ([]model.Skill, error) {
	clause, err := order.clause(skillOrderColumns...)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, "SELECT "+skillColumns+" FROM skills"+clause)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []model.Skill{}
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// GetSkill returns one skill row or sql.ErrNoRows.
func (q *Queries) GetSkill(ctx context.Context, id string) (model.Skill, error) {
	row := q.db.QueryRowContext(ctx, q.rebind("SELECT "+skillColumns+" FROM skills WHERE id = ?"), id)
	return scanSkill(row)
}

// CreateSkill inserts s under a new id and returns the stored row.
func (q *Queries) CreateSkill(ctx context.Context, s model.Skill) (model.Skill, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = q.clock.now()
	_, err := q.exec(ctx, "INSERT INTO skills ("+skillColumns+") VALUES (?, ?, ?, ?)",
		s.ID, s.Name, s.Level, model.FormatTimestamp(s.CreatedAt),
	)
	if err != nil {
		return model.Skill{}, err
	}
	return s, nil
}

// UpdateSkill overwrites name and level of row s.ID.
func (q *Queries) UpdateSkill(ctx context.Context, s model.Skill) (int64, error) {
	return q.exec(ctx, "UPDATE skills SET name = ?, level = ? WHERE id = ?", s.Name, s.Level, s.ID)
}

// DeleteSkill removes a row and reports how many rows were removed.
func (q *Queries) DeleteSkill(ctx context.Context, id string) (int64, error) {
	return q.deleteByID(ctx, "skills", id)
}
