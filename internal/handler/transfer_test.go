// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/storage"
	"github.com/olegiv/folio-go/internal/testutil"
	"github.com/olegiv/folio-go/internal/transfer"
)

func transferRouter(t *testing.T) (http.Handler, *content.Repository, *[]model.Collection) {
	t.Helper()
	logger := testutil.TestLoggerSilent()
	repo := content.NewRepository(testutil.TestQueries(t), logger)
	bucket, err := storage.NewFSBucket(t.TempDir(), "/storage")
	if err != nil {
		t.Fatalf("NewFSBucket: %v", err)
	}

	var changed []model.Collection
	h := NewTransferHandler(
		transfer.NewExporter(repo, bucket, logger),
		transfer.NewImporter(repo, bucket, logger),
		func(c model.Collection) { changed = append(changed, c) },
		logger,
	)
	r := chi.NewRouter()
	r.Get("/admin/api/export", h.Export)
	r.Post("/admin/api/import", h.Import)
	return r, repo, &changed
}

func importRequest(t *testing.T, body []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", "export.json")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(body)
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req
}

func TestTransferExportFormats(t *testing.T) {
	router, repo, _ := transferRouter(t)
	if _, err := repo.Skills.Upsert(context.Background(), model.Skill{Name: "Go", Level: 90}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, ".json") {
		t.Errorf("Content-Disposition = %q", got)
	}
	var data transfer.ExportData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(data.Skills) != 1 || data.Skills[0].Name != "Go" {
		t.Errorf("skills = %+v", data.Skills)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/export?format=zip", nil))
	if w.Header().Get("Content-Type") != "application/zip" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), zipMagic) {
		t.Error("zip export does not start with the ZIP signature")
	}
}

func TestTransferImport(t *testing.T) {
	router, repo, changed := transferRouter(t)
	body := []byte(`{"version":"1.0","skills":[{"name":"Go","level":90},{"name":"SQL","level":70}]}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, importRequest(t, body, map[string]string{"dry_run": "true"}))
	if w.Code != http.StatusOK {
		t.Fatalf("dry run status = %d: %s", w.Code, w.Body.String())
	}
	skills, _ := repo.Skills.List(context.Background())
	if len(skills) != 0 || len(*changed) != 0 {
		t.Fatalf("dry run wrote %d skills, changed %v", len(skills), *changed)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, importRequest(t, body, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Result transfer.ImportResult `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Result.Created[model.CollectionSkills] != 2 {
		t.Errorf("created = %v", resp.Result.Created)
	}
	skills, _ = repo.Skills.List(context.Background())
	if len(skills) != 2 {
		t.Errorf("skills = %d, want 2", len(skills))
	}
	if len(*changed) != 1 || (*changed)[0] != model.CollectionSkills {
		t.Errorf("changed = %v", *changed)
	}
}

func TestTransferImportRejectsBadInput(t *testing.T) {
	router, _, _ := transferRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"version":`},
		{"unknown version", `{"version":"0.1"}`},
		{"broken zip", "PK\x03\x04garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, importRequest(t, []byte(tt.body), nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/api/import", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
