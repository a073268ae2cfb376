// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"

	"github.com/olegiv/folio-go/internal/model"
)

const settingsColumns = `id, intro_text, gradient_titles, profile_description, profile_photo_url,
	about_description, about_photo_url, cv_url, social_links`

// GetSettings returns the singleton settings row.
// It returns sql.ErrNoRows when the row is missing.
func (q *Queries) GetSettings(ctx context.Context) (model.SiteSettings, error) {
	row := q.db.QueryRowContext(ctx, q.rebind("SELECT "+settingsColumns+" FROM site_settings ORDER BY id LIMIT 1"))

	var s model.SiteSettings
	var links string
	if err := row.Scan(
		&s.ID,
		&s.IntroText,
		&s.GradientTitles,
		&s.ProfileDescription,
		&s.ProfilePhotoURL,
		&s.AboutDescription,
		&s.AboutPhotoURL,
		&s.CVURL,
		&links,
	); err != nil {
		return model.SiteSettings{}, err
	}

	decoded, err := decodeSocialLinks(links)
	if err != nil {
		return model.SiteSettings{}, err
	}
	s.SocialLinks = decoded
	return s, nil
}

// UpdateSettings overwrites every column of the row with s.ID.
func (q *Queries) UpdateSettings(ctx context.Context, s model.SiteSettings) (int64, error) {
	links, err := encodeJSON(nonNilLinks(s.SocialLinks))
	if err != nil {
		return 0, err
	}
	return q.exec(ctx, `UPDATE site_settings SET
		intro_text = ?, gradient_titles = ?, profile_description = ?, profile_photo_url = ?,
		about_description = ?, about_photo_url = ?, cv_url = ?, social_links = ?
		WHERE id = ?`,
		s.IntroText, s.GradientTitles, s.ProfileDescription, s.ProfilePhotoURL,
		s.AboutDescription, s.AboutPhotoURL, s.CVURL, links, s.ID,
	)
}

// UpdateSettingsPhoto sets a single photo column.
func (q *Queries) UpdateSettingsPhoto(ctx context.Context, id int64, field model.PhotoField, url string) (int64, error) {
	column := string(model.PhotoFieldProfile)
	if field == model.PhotoFieldAbout {
		column = string(model.PhotoFieldAbout)
	}
	return q.exec(ctx, "UPDATE site_settings SET "+column+" = ? WHERE id = ?", url, id)
}

// PutSettings writes the singleton row under model.SettingsID, creating it if
// it does not exist yet.
func (q *Queries) PutSettings(ctx context.Context, s model.SiteSettings) (model.SiteSettings, error) {
	s.ID = model.SettingsID
	s.SocialLinks = nonNilLinks(s.SocialLinks)
	links, err := encodeJSON(s.SocialLinks)
	if err != nil {
		return model.SiteSettings{}, err
	}
	_, err = q.exec(ctx, `INSERT INTO site_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			intro_text = excluded.intro_text,
			gradient_titles = excluded.gradient_titles,
			profile_description = excluded.profile_description,
			profile_photo_url = excluded.profile_photo_url,
			about_description = excluded.about_description,
			about_photo_url = excluded.about_photo_url,
			cv_url = excluded.cv_url,
			social_links = excluded.social_links`,
		s.ID, s.IntroText, s.GradientTitles, s.ProfileDescription, s.ProfilePhotoURL,
		s.AboutDescription, s.AboutPhotoURL, s.CVURL, links,
	)
	if err != nil {
		return model.SiteSettings{}, err
	}
	return s, nil
}

func nonNilLinks(links []model.SocialLink) []model.SocialLink {
	if links == nil {
		return []model.SocialLink{}
	}
	return links
}
