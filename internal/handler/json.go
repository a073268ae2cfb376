// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP handlers of the admin workspace, the
// login flow and the public content API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/crop"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/workspace"
)

// maxJSONBody limits JSON request bodies.
const maxJSONBody = 1 << 20

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeJSONSuccess writes a JSON success response.
func writeJSONSuccess(w http.ResponseWriter, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	writeJSON(w, http.StatusOK, data)
}

// decodeJSON reads a JSON body of at most maxJSONBody bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("request.decode", fmt.Errorf("malformed JSON body: %w", err))
	}
	return nil
}

// readBody reads a raw body of at most maxJSONBody bytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return nil, apperr.Validation("request.read", fmt.Errorf("reading body: %w", err))
	}
	return data, nil
}

// statusOf maps workspace and component errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, workspace.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, workspace.ErrBusy),
		errors.Is(err, workspace.ErrSuperseded),
		errors.Is(err, workspace.ErrNoForm),
		errors.Is(err, workspace.ErrNoCrop),
		errors.Is(err, crop.ErrInvalidTransition),
		errors.Is(err, crop.ErrReleased):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	}
	if kind := apperr.KindOf(err); kind != apperr.KindUnknown {
		return kind.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// writeError reports err as JSON. Unauthenticated browser requests are
// redirected to the login page instead.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusUnauthorized && !middleware.WantsJSON(r) {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}

	body := map[string]any{
		"success": false,
		"error":   apperr.Message(err),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body["kind"] = ae.Kind.String()
		if len(ae.Fields) > 0 {
			body["fields"] = ae.Fields
		}
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "error", err)
		body["error"] = "Internal Server Error"
	}
	writeJSON(w, status, body)
}
