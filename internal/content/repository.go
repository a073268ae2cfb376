// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// Repository groups the four collections. Photos updates the settings photo
// columns on their own.
type Repository struct {
	Settings    *Collection[model.SiteSettings]
	Experiences *Collection[model.Experience]
	Projects    *Collection[model.Project]
	Skills      *Collection[model.Skill]
	Photos      *SettingsPhotos
}

// NewRepository creates a repository backed by the relational store.
func NewRepository(q *store.Queries, logger *slog.Logger) *Repository {
	return &Repository{
		Settings:    NewCollection[model.SiteSettings](model.CollectionSettings, settingsTable{q}, logger),
		Experiences: NewCollection[model.Experience](model.CollectionExperiences, experienceTable{q}, logger),
		Projects:    NewCollection[model.Project](model.CollectionProjects, projectTable{q}, logger),
		Skills:      NewCollection[model.Skill](model.CollectionSkills, skillTable{q}, logger),
		Photos:      NewSettingsPhotos(q, logger),
	}
}

// Upsert dispatches rec to the collection it belongs to. rec must have the
// record type of the named collection.
func (r *Repository) Upsert(ctx context.Context, c model.Collection, rec model.Record) (model.Record, error) {
	switch v := rec.(type) {
	case model.SiteSettings:
		if c == model.CollectionSettings {
			return upsertRecord(ctx, r.Settings, v)
		}
	case model.Experience:
		if c == model.CollectionExperiences {
			return upsertRecord(ctx, r.Experiences, v)
		}
	case model.Project:
		if c == model.CollectionProjects {
			return upsertRecord(ctx, r.Projects, v)
		}
	case model.Skill:
		if c == model.CollectionSkills {
			return upsertRecord(ctx, r.Skills, v)
		}
	}
	return nil, apperr.Validation(string(c)+".upsert", fmt.Errorf("record of type %T does not belong to %q", rec, c))
}

func upsertRecord[T model.Record](ctx context.Context, c *Collection[T], rec T) (model.Record, error) {
	out, err := c.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes a row from the named collection. Missing rows are not an error.
func (r *Repository) Remove(ctx context.Context, c model.Collection, id string) error {
	switch c {
	case model.CollectionSettings:
		return r.Settings.Remove(ctx, id)
	case model.CollectionExperiences:
		return r.Experiences.Remove(ctx, id)
	case model.CollectionProjects:
		return r.Projects.Remove(ctx, id)
	case model.CollectionSkills:
		return r.Skills.Remove(ctx, id)
	default:
		return apperr.Validation("remove", fmt.Errorf("unknown collection %q", c))
	}
}
