// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/crop"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/workspace"
)

// maxUploadBytes limits image uploads.
const maxUploadBytes = 20 << 20

// AdminHandler exposes the admin workspace as a JSON API. Every request
// works on the workspace of the signed-in admin.
type AdminHandler struct {
	workspaces *workspace.Registry
	logger     *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reg *workspace.Registry, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{workspaces: reg, logger: logger}
}

func (h *AdminHandler) workspace(r *http.Request) *workspace.Workspace {
	return h.workspaces.Get(middleware.GetUserID(r))
}

// respondSnapshot writes the snapshot of a finished operation. A reload that
// failed for some collections still returns the snapshot, with the failed
// collections listed in its errors.
func (h *AdminHandler) respondSnapshot(w http.ResponseWriter, r *http.Request, snap workspace.Snapshot, err error) {
	if err != nil && !apperr.Is(err, apperr.KindFetch) {
		writeError(w, r, h.logger, err)
		return
	}
	data := map[string]any{"snapshot": snap}
	if err != nil {
		data["warning"] = apperr.Message(err)
	}
	writeJSONSuccess(w, data)
}

// Snapshot handles GET /admin: loads all collections.
func (h *AdminHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.workspace(r).LoadSnapshot(r.Context())
	h.respondSnapshot(w, r, snap, err)
}

// UpdateSettings handles PUT /admin/api/settings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var draft model.SiteSettings
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	snap, err := h.workspace(r).SubmitSettingsForm(r.Context(), draft)
	h.respondSnapshot(w, r, snap, err)
}

func collectionParam(r *http.Request) (model.Collection, error) {
	c, err := model.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		return "", apperr.New(apperr.KindValidation, "request.collection", err.Error(), err)
	}
	return c, nil
}

// OpenForm handles GET /admin/api/{collection}/form. With ?edit=<id> the
// form is filled from that row; with ?new=1 an empty form is opened. Without
// either the open form is returned, or a new one is opened.
func (h *AdminHandler) OpenForm(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ws := h.workspace(r)
	editID := r.URL.Query().Get("edit")

	if editID == "" && r.URL.Query().Get("new") == "" {
		if f, ok := ws.Form(c); ok {
			writeJSONSuccess(w, map[string]any{"form": f})
			return
		}
	}
	if editID != "" && ws.Snapshot().LoadedAt.IsZero() {
		if _, err := ws.LoadSnapshot(r.Context()); err != nil && !apperr.Is(err, apperr.KindFetch) {
			writeError(w, r, h.logger, err)
			return
		}
	}

	f, err := ws.OpenForm(c, editID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"form": f})
}

// CloseForm handles DELETE /admin/api/{collection}/form.
func (h *AdminHandler) CloseForm(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.workspace(r).CloseForm(c)
	writeJSONSuccess(w, nil)
}

// Create handles POST /admin/api/{collection}.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "")
}

// Update handles PUT /admin/api/{collection}/{id}.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, chi.URLParam(r, "id"))
}

func (h *AdminHandler) submit(w http.ResponseWriter, r *http.Request, editTargetID string) {
	c, err := collectionParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if c == model.CollectionSettings {
		h.UpdateSettings(w, r)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	draft, err := workspace.DecodeDraft(c, body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ws := h.workspace(r)
	snap, err := ws.SubmitCollectionForm(r.Context(), c, draft, editTargetID)
	if err != nil && !apperr.Is(err, apperr.KindFetch) {
		status := statusOf(err)
		resp := map[string]any{
			"success": false,
			"error":   apperr.Message(err),
		}
		if f, ok := ws.Form(c); ok {
			resp["form"] = f
		}
		if status == http.StatusInternalServerError {
			h.logger.Error("form submit failed", "collection", c, "error", err)
			resp["error"] = "Internal Server Error"
		}
		writeJSON(w, status, resp)
		return
	}
	h.respondSnapshot(w, r, snap, err)
}

// Delete handles DELETE /admin/api/{collection}/{id}?confirm=yes.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "yes"
	snap, err := h.workspace(r).DeleteRow(r.Context(), c, chi.URLParam(r, "id"), func() bool { return confirmed })
	h.respondSnapshot(w, r, snap, err)
}

// BeginCrop handles POST /admin/api/crop, a multipart form with the image
// in "file", the target in "destination" and the optional displayed size in
// "display_width" and "display_height".
func (h *AdminHandler) BeginCrop(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, h.logger, apperr.Decode("crop.begin", fmt.Errorf("reading upload: %w", err)))
		return
	}
	dest, err := model.ParseDestination(r.FormValue("destination"))
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("crop.begin", err))
		return
	}
	display, err := displaySize(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("crop.begin", fmt.Errorf("no image file selected: %w", err)))
		return
	}
	defer func() { _ = file.Close() }()

	view, err := h.workspace(r).BeginCrop(r.Context(), dest, file, display)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"crop": view})
}

func displaySize(r *http.Request) (crop.Size, error) {
	var size crop.Size
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"display_width", &size.Width},
		{"display_height", &size.Height},
	} {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return crop.Size{}, apperr.Validation("crop.begin", fmt.Errorf("%s must be a positive number", f.name))
		}
		*f.dst = n
	}
	return size, nil
}

// CropSession handles GET /admin/api/crop.
func (h *AdminHandler) CropSession(w http.ResponseWriter, r *http.Request) {
	view, ok := h.workspace(r).CropSession()
	if !ok {
		writeJSONError(w, http.StatusNotFound, workspace.ErrNoCrop.Error())
		return
	}
	writeJSONSuccess(w, map[string]any{"crop": view})
}

// AdjustCrop handles PUT /admin/api/crop with the new rectangle.
func (h *AdminHandler) AdjustCrop(w http.ResponseWriter, r *http.Request) {
	var rect crop.Rect
	if err := decodeJSON(w, r, &rect); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view, err := h.workspace(r).AdjustCrop(rect)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"crop": view})
}

// CommitCrop handles POST /admin/api/crop/commit.
func (h *AdminHandler) CommitCrop(w http.ResponseWriter, r *http.Request) {
	res, err := h.workspace(r).CommitCrop(r.Context())
	if err != nil && (res.URL == "" || !apperr.Is(err, apperr.KindFetch)) {
		writeError(w, r, h.logger, err)
		return
	}
	data := map[string]any{"result": res}
	if err != nil {
		data["warning"] = apperr.Message(err)
	}
	writeJSONSuccess(w, data)
}

// CancelCrop handles DELETE /admin/api/crop.
func (h *AdminHandler) CancelCrop(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace(r).CancelCrop(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// UploadProjectImage handles POST /admin/api/projects/media: an uncropped
// image in the multipart field "file" is stored and appended to the open
// project form.
func (h *AdminHandler) UploadProjectImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("projects.media", fmt.Errorf("no image file selected: %w", err)))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.logger, apperr.Decode("projects.media", err))
		return
	}
	f, err := h.workspace(r).UploadProjectImage(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"form": f})
}

// AddProjectVideo handles POST /admin/api/projects/media/video.
func (h *AdminHandler) AddProjectVideo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	f, err := h.workspace(r).AddProjectVideo(body.URL)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"form": f})
}

// RemoveProjectMedia handles DELETE /admin/api/projects/media/{index}.
func (h *AdminHandler) RemoveProjectMedia(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("projects.media", errors.New("invalid media index")))
		return
	}
	f, err := h.workspace(r).RemoveProjectMedia(i)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"form": f})
}
