// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/transfer"
)

// maxImportBytes limits uploaded import files.
const maxImportBytes = 200 << 20

// zipMagic starts every ZIP archive.
var zipMagic = []byte("PK\x03\x04")

// TransferHandler serves portfolio export and import.
type TransferHandler struct {
	exporter *transfer.Exporter
	importer *transfer.Importer
	onImport func(model.Collection)
	logger   *slog.Logger
}

// NewTransferHandler creates a new TransferHandler. onImport is called for
// every collection an import wrote to.
func NewTransferHandler(exporter *transfer.Exporter, importer *transfer.Importer, onImport func(model.Collection), logger *slog.Logger) *TransferHandler {
	return &TransferHandler{exporter: exporter, importer: importer, onImport: onImport, logger: logger}
}

// Export handles GET /admin/api/export. With ?format=zip the stored images
// are included.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	stamp := time.Now().UTC().Format("20060102-150405")

	var (
		buf         bytes.Buffer
		err         error
		contentType = "application/json"
		filename    = "folio-export-" + stamp + ".json"
	)
	if r.URL.Query().Get("format") == "zip" {
		contentType = "application/zip"
		filename = "folio-export-" + stamp + ".zip"
		err = h.exporter.ExportArchive(r.Context(), &buf)
	} else {
		err = h.exporter.ExportToWriter(r.Context(), &buf)
	}
	if err != nil {
		h.logger.Error("export failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	h.logger.Info("portfolio export downloaded", "category", model.EventCategorySystem, "format", contentType, "user_id", middleware.GetUserID(r))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Import handles POST /admin/api/import, a multipart form with a JSON export
// or ZIP archive in "file". "dry_run=true" only validates, and
// "overwrite_objects=true" replaces stored images with the same name.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, h.logger, apperr.Decode("import", fmt.Errorf("reading upload: %w", err)))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("import", fmt.Errorf("no import file selected: %w", err)))
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.logger, apperr.Decode("import", fmt.Errorf("reading upload: %w", err)))
		return
	}

	opts := transfer.ImportOptions{
		DryRun:           r.FormValue("dry_run") == "true",
		OverwriteObjects: r.FormValue("overwrite_objects") == "true",
	}
	var result *transfer.ImportResult
	if bytes.HasPrefix(raw, zipMagic) {
		result, err = h.importer.ImportFromZipBytes(r.Context(), raw, opts)
	} else {
		result, err = h.importer.ImportFromReader(r.Context(), bytes.NewReader(raw), opts)
	}
	if err != nil {
		writeError(w, r, h.logger, apperr.Decode("import", err))
		return
	}

	if h.onImport != nil {
		for _, c := range result.Changed() {
			h.onImport(c)
		}
	}
	h.logger.Info("portfolio import finished", "category", model.EventCategorySystem,
		"dry_run", result.DryRun, "skipped", result.Skipped, "user_id", middleware.GetUserID(r))
	writeJSONSuccess(w, map[string]any{"result": result})
}
