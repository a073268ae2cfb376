// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/model"
)

// PhotoStore is the row API behind SettingsPhotos.
type PhotoStore interface {
	GetSettings(ctx context.Context) (model.SiteSettings, error)
	PutSettings(ctx context.Context, s model.SiteSettings) (model.SiteSettings, error)
	UpdateSettingsPhoto(ctx context.Context, id int64, field model.PhotoField, url string) (int64, error)
}

// SettingsPhotos writes one photo column of the settings row and leaves the
// other columns as stored.
type SettingsPhotos struct {
	store  PhotoStore
	logger *slog.Logger
}

// NewSettingsPhotos creates a SettingsPhotos over s.
func NewSettingsPhotos(s PhotoStore, logger *slog.Logger) *SettingsPhotos {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsPhotos{store: s, logger: logger}
}

// SetPhoto stores url in field and returns the settings row as it is now.
// A missing row is created with only that field set.
func (p *SettingsPhotos) SetPhoto(ctx context.Context, field model.PhotoField, url string) (model.SiteSettings, error) {
	const op = "settings.set_photo"

	if field != model.PhotoFieldProfile && field != model.PhotoFieldAbout {
		return model.SiteSettings{}, apperr.Validation(op, fmt.Errorf("unknown photo field %q", field))
	}

	n, err := p.store.UpdateSettingsPhoto(ctx, model.SettingsID, field, url)
	if err != nil {
		p.logger.Warn("settings photo update failed", "category", model.EventCategoryContent, "field", field, "error", err)
		return model.SiteSettings{}, apperr.Persistence(op, err)
	}
	if n == 0 {
		row := model.SiteSettings{ID: model.SettingsID}.WithPhoto(field, url)
		saved, err := p.store.PutSettings(ctx, row)
		if err != nil {
			return model.SiteSettings{}, apperr.Persistence(op, err)
		}
		return saved, nil
	}

	saved, err := p.store.GetSettings(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SiteSettings{}, apperr.Persistence(op, fmt.Errorf("%w: settings", ErrNotFound))
	}
	if err != nil {
		return model.SiteSettings{}, apperr.Persistence(op, err)
	}
	return saved, nil
}
