// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// settingsTable maps the singleton row onto the Table contract.
type settingsTable struct{ q *store.Queries }

func (t settingsTable) List(ctx context.Context, _ store.Order) ([]model.SiteSettings, error) {
	s, err := t.q.GetSettings(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.SiteSettings{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []model.SiteSettings{s}, nil
}

func (t settingsTable) Insert(ctx context.Context, s model.SiteSettings) (model.SiteSettings, error) {
	return t.q.PutSettings(ctx, s)
}

// Update writes the row and recreates it if it was removed out of band.
func (t settingsTable) Update(ctx context.Context, s model.SiteSettings) (int64, error) {
	n, err := t.q.UpdateSettings(ctx, s)
	if err != nil || n > 0 {
		return n, err
	}
	if s.ID != model.SettingsID {
		return 0, nil
	}
	if _, err := t.q.PutSettings(ctx, s); err != nil {
		return 0, err
	}
	return 1, nil
}

func (t settingsTable) Delete(context.Context, string) (int64, error) {
	return 0, errors.New("settings cannot be deleted")
}

type experienceTable struct{ q *store.Queries }

func (t experienceTable) List(ctx context.Context, o store.Order) ([]model.Experience, error) {
	return t.q.ListExperiences(ctx, o)
}

func (t experienceTable) Insert(ctx context.Context, e model.Experience) (model.Experience, error) {
	return t.q.CreateExperience(ctx, e)
}

func (t experienceTable) Update(ctx context.Context, e model.Experience) (int64, error) {
	return t.q.UpdateExperience(ctx, e)
}

func (t experienceTable) Delete(ctx context.Context, id string) (int64, error) {
	return t.q.DeleteExperience(ctx, id)
}

type projectTable struct{ q *store.Queries }

func (t projectTable) List(ctx context.Context, o store.Order) ([]model.Project, error) {
	return t.q.ListProjects(ctx, o)
}

func (t projectTable) Insert(ctx context.Context, p model.Project) (model.Project, error) {
	return t.q.CreateProject(ctx, p)
}

func (t projectTable) Update(ctx context.Context, p model.Project) (int64, error) {
	return t.q.UpdateProject(ctx, p)
}

func (t projectTable) Delete(ctx context.Context, id string) (int64, error) {
	return t.q.DeleteProject(ctx, id)
}

type skillTable struct{ q *store.Queries }

func (t skillTable) List(ctx context.Context, o store.Order) ([]model.Skill, error) {
	return t.q.ListSkills(ctx, o)
}

func (t skillTable) Insert(ctx context.Context, s model.Skill) (model.Skill, error) {
	return t.q.CreateSkill(ctx, s)
}

func (t skillTable) Update(ctx context.Context, s model.Skill) (int64, error) {
	return t.q.UpdateSkill(ctx, s)
}

func (t skillTable) Delete(ctx context.Context, id string) (int64, error) {
	return t.q.DeleteSkill(ctx, id)
}
