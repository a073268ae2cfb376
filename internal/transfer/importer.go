// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/storage"
)

// Archive limits.
const (
	maxExportJSONSize = 10 << 20
	maxObjectSize     = 25 << 20
	maxObjects        = 2000
)

// ErrUnsupportedVersion is returned for exports of another format version.
var ErrUnsupportedVersion = errors.New("unsupported export version")

// ObjectSink stores imported objects.
type ObjectSink interface {
	Upload(ctx context.Context, key string, data []byte, opts storage.UploadOptions) error
	PublicURL(key string) (string, error)
}

// Importer handles importing the portfolio. Records whose id exists are
// updated, the others are created under a new id.
type Importer struct {
	repo    *content.Repository
	objects ObjectSink
	logger  *slog.Logger
}

// NewImporter creates a new Importer.
func NewImporter(repo *content.Repository, objects ObjectSink, logger *slog.Logger) *Importer {
	return &Importer{repo: repo, objects: objects, logger: logger}
}

// Import imports a plain JSON export. Object files are not part of it, so
// content URLs are kept as exported.
func (i *Importer) Import(ctx context.Context, data *ExportData, opts ImportOptions) (*ImportResult, error) {
	return i.importData(ctx, data, nil, opts)
}

// ImportFromReader reads and imports a JSON export.
func (i *Importer) ImportFromReader(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	var data ExportData
	if err := json.NewDecoder(io.LimitReader(r, maxExportJSONSize)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return i.Import(ctx, &data, opts)
}

// ImportFromZipBytes imports a ZIP archive produced by ExportArchive.
func (i *Importer) ImportFromZipBytes(ctx context.Context, raw []byte, opts ImportOptions) (*ImportResult, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip data: %w", err)
	}
	return i.ImportFromZip(ctx, zipReader, opts)
}

// ImportFromZip imports from a ZIP archive containing export.json and the
// object files.
func (i *Importer) ImportFromZip(ctx context.Context, zipReader *zip.Reader, opts ImportOptions) (*ImportResult, error) {
	files := make(map[string]*zip.File, len(zipReader.File))
	for _, f := range zipReader.File {
		if !f.FileInfo().IsDir() {
			files[f.Name] = f
		}
	}

	f, ok := files[exportFile]
	if !ok {
		return nil, fmt.Errorf("%s not found in zip archive", exportFile)
	}
	if f.UncompressedSize64 > maxExportJSONSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", exportFile, maxExportJSONSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", exportFile, err)
	}
	var data ExportData
	err = json.NewDecoder(io.LimitReader(rc, maxExportJSONSize)).Decode(&data)
	_ = rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", exportFile, err)
	}

	return i.importData(ctx, &data, files, opts)
}

func (i *Importer) importData(ctx context.Context, data *ExportData, files map[string]*zip.File, opts ImportOptions) (*ImportResult, error) {
	if data.Version != ExportVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, data.Version)
	}
	if len(data.Objects) > maxObjects {
		return nil, fmt.Errorf("export lists %d objects, limit is %d", len(data.Objects), maxObjects)
	}

	result := newImportResult(opts.DryRun)
	urls := i.importObjects(ctx, data, files, opts, result)
	rewrite := func(u string) string {
		if v, ok := urls[u]; ok {
			return v
		}
		return u
	}

	if data.Settings != nil {
		s := data.Settings.Clone()
		s.ID = model.SettingsID
		s.ProfilePhotoURL = rewrite(s.ProfilePhotoURL)
		s.AboutPhotoURL = rewrite(s.AboutPhotoURL)
		s.CVURL = rewrite(s.CVURL)
		importRecords(ctx, i.repo.Settings, []model.SiteSettings{s}, nil, opts, result)
	}

	importRecords(ctx, i.repo.Experiences, data.Experiences, func(e model.Experience) model.Experience {
		e.ID = ""
		return e
	}, opts, result)

	projects := make([]model.Project, 0, len(data.Projects))
	for _, p := range data.Projects {
		media := make(model.MediaList, 0, len(p.Media))
		for _, m := range p.Media {
			m.URL = rewrite(m.URL)
			media = append(media, m)
		}
		p.Media = media
		projects = append(projects, p)
	}
	importRecords(ctx, i.repo.Projects, projects, func(p model.Project) model.Project {
		p.ID = ""
		return p
	}, opts, result)

	importRecords(ctx, i.repo.Skills, data.Skills, func(s model.Skill) model.Skill {
		s.ID = ""
		return s
	}, opts, result)

	i.logger.Info("portfolio imported",
		"category", model.EventCategorySystem,
		"dry_run", opts.DryRun,
		"created", result.Created,
		"updated", result.Updated,
		"objects", result.Objects,
		"skipped", result.Skipped)
	return result, nil
}

// importObjects stores the archive's object files and returns the URL
// rewrites from the exporting instance to this one.
func (i *Importer) importObjects(ctx context.Context, data *ExportData, files map[string]*zip.File, opts ImportOptions, result *ImportResult) map[string]string {
	urls := make(map[string]string)
	for _, obj := range data.Objects {
		if err := storage.ValidateKey(obj.Key); err != nil {
			result.addError("objects", obj.Key, err.Error())
			continue
		}
		if obj.FilePath == "" {
			continue
		}
		if obj.FilePath != objectsDir+obj.Key {
			result.addError("objects", obj.Key, "unexpected file path "+obj.FilePath)
			continue
		}
		f, ok := files[obj.FilePath]
		if !ok {
			result.addError("objects", obj.Key, "file missing from archive")
			continue
		}
		if f.UncompressedSize64 > maxObjectSize {
			result.addError("objects", obj.Key, fmt.Sprintf("file exceeds %d bytes", maxObjectSize))
			continue
		}

		if !opts.DryRun {
			if err := i.storeObject(ctx, f, obj, opts.OverwriteObjects); err != nil {
				result.addError("objects", obj.Key, err.Error())
				continue
			}
		}
		result.Objects++

		newURL, err := i.objects.PublicURL(obj.Key)
		if err != nil {
			continue
		}
		if data.StorageBaseURL != "" {
			urls[strings.TrimRight(data.StorageBaseURL, "/")+"/"+obj.Key] = newURL
		}
	}
	return urls
}

func (i *Importer) storeObject(ctx context.Context, f *zip.File, obj ExportObject, overwrite bool) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(io.LimitReader(rc, maxObjectSize+1))
	if err != nil {
		return fmt.Errorf("failed to read zip entry: %w", err)
	}
	if len(body) > maxObjectSize {
		return fmt.Errorf("file exceeds %d bytes", maxObjectSize)
	}

	err = i.objects.Upload(ctx, obj.Key, body, storage.UploadOptions{
		CacheControl: 3600,
		Upsert:       overwrite,
		ContentType:  obj.ContentType,
	})
	if errors.Is(err, storage.ErrObjectExists) {
		i.logger.Debug("object already stored, keeping existing", "key", obj.Key)
		return nil
	}
	return err
}

// importRecords upserts recs into c. A record whose id is unknown here is
// created under a new id with clearID; nil clearID means the id is fixed.
func importRecords[T model.Record](ctx context.Context, c *content.Collection[T], recs []T, clearID func(T) T, opts ImportOptions, result *ImportResult) {
	name := c.Name()
	for _, rec := range recs {
		if opts.DryRun {
			if err := checkRecord(rec); err != nil {
				result.addError(string(name), rec.RecordID(), err.Error())
				continue
			}
			result.Created[name]++
			continue
		}

		if rec.RecordID() != "" {
			_, err := c.Upsert(ctx, rec)
			if err == nil {
				result.Updated[name]++
				continue
			}
			if !errors.Is(err, content.ErrNotFound) || clearID == nil {
				result.addError(string(name), rec.RecordID(), err.Error())
				continue
			}
		}
		if clearID != nil {
			rec = clearID(rec)
		}
		if _, err := c.Upsert(ctx, rec); err != nil {
			result.addError(string(name), rec.RecordID(), err.Error())
			continue
		}
		result.Created[name]++
	}
}

// checkRecord applies the normalization and validation Upsert would.
func checkRecord[T model.Record](rec T) error {
	if n, ok := any(rec).(interface{ Normalize() T }); ok {
		rec = n.Normalize()
	}
	return validation.Validate(rec)
}
