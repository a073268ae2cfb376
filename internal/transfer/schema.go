// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transfer exports the portfolio to a JSON document or a ZIP
// archive that also carries the stored images, and imports it back.
package transfer

import (
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// ExportVersion is the current version of the export format.
const ExportVersion = "1.0"

// Archive layout.
const (
	exportFile = "export.json"
	objectsDir = "objects/"
)

// ExportData represents the complete export structure.
type ExportData struct {
	Version        string              `json:"version"`
	ExportedAt     time.Time           `json:"exported_at"`
	StorageBaseURL string              `json:"storage_base_url,omitempty"`
	Settings       *model.SiteSettings `json:"settings,omitempty"`
	Experiences    []model.Experience  `json:"experiences"`
	Projects       []model.Project     `json:"projects"`
	Skills         []model.Skill       `json:"skills"`
	Objects        []ExportObject      `json:"objects,omitempty"`
}

// ExportObject describes a stored object referenced by the content.
type ExportObject struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	// FilePath is the entry name inside a ZIP archive, empty in plain JSON
	// exports.
	FilePath string `json:"file_path,omitempty"`
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	// DryRun validates the data without writing anything.
	DryRun bool
	// OverwriteObjects replaces stored objects that have the same key.
	OverwriteObjects bool
}

// ImportResult reports what an import did. In a dry run Created counts the
// records that would be written.
type ImportResult struct {
	DryRun  bool                     `json:"dry_run"`
	Created map[model.Collection]int `json:"created"`
	Updated map[model.Collection]int `json:"updated"`
	Objects int                      `json:"objects"`
	Skipped int                      `json:"skipped"`
	Errors  []ImportError            `json:"errors,omitempty"`
}

func newImportResult(dryRun bool) *ImportResult {
	return &ImportResult{
		DryRun:  dryRun,
		Created: make(map[model.Collection]int),
		Updated: make(map[model.Collection]int),
	}
}

// Changed returns the collections the import wrote to.
func (r *ImportResult) Changed() []model.Collection {
	if r.DryRun {
		return nil
	}
	var out []model.Collection
	for _, c := range model.Collections {
		if r.Created[c]+r.Updated[c] > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (r *ImportResult) addError(entity, id, msg string) {
	r.Errors = append(r.Errors, ImportError{Entity: entity, ID: id, Message: msg})
	r.Skipped++
}

// ImportError describes a record or object that was skipped.
type ImportError struct {
	Entity  string `json:"entity"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
