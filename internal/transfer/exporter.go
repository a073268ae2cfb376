// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/storage"
)

// ObjectSource reads stored objects.
type ObjectSource interface {
	List(ctx context.Context) ([]storage.ObjectInfo, error)
	Read(ctx context.Context, key string) ([]byte, storage.ObjectInfo, error)
	KeyFromURL(u string) (string, bool)
	BaseURL() string
}

// Exporter handles exporting the portfolio.
type Exporter struct {
	repo    *content.Repository
	objects ObjectSource
	logger  *slog.Logger
}

// NewExporter creates a new Exporter.
func NewExporter(repo *content.Repository, objects ObjectSource, logger *slog.Logger) *Exporter {
	return &Exporter{repo: repo, objects: objects, logger: logger}
}

// Export collects all collections and the metadata of the objects they
// reference.
func (e *Exporter) Export(ctx context.Context) (*ExportData, error) {
	data := &ExportData{
		Version:        ExportVersion,
		ExportedAt:     time.Now().UTC(),
		StorageBaseURL: e.objects.BaseURL(),
	}

	settings, err := e.repo.Settings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}
	if len(settings) > 0 {
		data.Settings = &settings[0]
	}
	if data.Experiences, err = e.repo.Experiences.List(ctx); err != nil {
		return nil, fmt.Errorf("exporting experiences: %w", err)
	}
	if data.Projects, err = e.repo.Projects.List(ctx); err != nil {
		return nil, fmt.Errorf("exporting projects: %w", err)
	}
	if data.Skills, err = e.repo.Skills.List(ctx); err != nil {
		return nil, fmt.Errorf("exporting skills: %w", err)
	}

	if data.Objects, err = e.exportObjects(ctx, data); err != nil {
		return nil, err
	}

	e.logger.Info("portfolio exported",
		"category", model.EventCategorySystem,
		"experiences", len(data.Experiences),
		"projects", len(data.Projects),
		"skills", len(data.Skills),
		"objects", len(data.Objects))
	return data, nil
}

// ExportToWriter writes the export as JSON to the provided writer.
func (e *Exporter) ExportToWriter(ctx context.Context, w io.Writer) error {
	data, err := e.Export(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportArchive writes a ZIP archive containing export.json and the
// referenced objects under objects/.
func (e *Exporter) ExportArchive(ctx context.Context, w io.Writer) error {
	data, err := e.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate export: %w", err)
	}

	zipWriter := zip.NewWriter(w)
	for i := range data.Objects {
		obj := &data.Objects[i]
		if err := e.addObjectToZip(ctx, zipWriter, obj); err != nil {
			e.logger.Warn("failed to add object to archive", "key", obj.Key, "error", err)
		}
	}

	jsonWriter, err := zipWriter.Create(exportFile)
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", exportFile, err)
	}
	encoder := json.NewEncoder(jsonWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportFile, err)
	}
	return zipWriter.Close()
}

func (e *Exporter) addObjectToZip(ctx context.Context, zipWriter *zip.Writer, obj *ExportObject) error {
	body, _, err := e.objects.Read(ctx, obj.Key)
	if err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name:     objectsDir + obj.Key,
		Method:   zip.Deflate,
		Modified: time.Now().UTC(),
	}
	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("failed to write object content: %w", err)
	}
	obj.FilePath = header.Name
	return nil
}

// exportObjects lists the stored objects the content links to. Links to
// other hosts and objects missing from the bucket are left out.
func (e *Exporter) exportObjects(ctx context.Context, data *ExportData) ([]ExportObject, error) {
	referenced := make(map[string]struct{})
	for _, u := range contentURLs(data) {
		if key, ok := e.objects.KeyFromURL(u); ok {
			referenced[key] = struct{}{}
		}
	}
	if len(referenced) == 0 {
		return nil, nil
	}

	stored, err := e.objects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	var objects []ExportObject
	for _, info := range stored {
		if _, ok := referenced[info.Key]; !ok {
			continue
		}
		objects = append(objects, ExportObject{Key: info.Key, ContentType: info.ContentType, Size: info.Size})
		delete(referenced, info.Key)
	}
	for key := range referenced {
		e.logger.Warn("referenced object missing from storage", "key", key)
	}
	return objects, nil
}

// contentURLs returns every URL field of the exported content.
func contentURLs(data *ExportData) []string {
	var urls []string
	if s := data.Settings; s != nil {
		urls = append(urls, s.ProfilePhotoURL, s.AboutPhotoURL, s.CVURL)
	}
	for _, p := range data.Projects {
		for _, m := range p.Media {
			urls = append(urls, m.URL)
		}
	}
	return urls
}
