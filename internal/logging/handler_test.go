// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, q interface {
	ListEvents(context.Context, int, int) ([]model.Event, error)
}) []model.Event {
	t.Helper()
	events, err := q.ListEvents(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	q := testutil.TestQueries(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, q))

	logger.Info("routine info")
	logger.Warn("upload failed", "key", "profile-1.jpeg")
	logger.Error("database error", "error", errors.New("disk full"))

	events := listEvents(t, q)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	byMsg := map[string]model.Event{}
	for _, e := range events {
		byMsg[e.Message] = e
	}
	if e := byMsg["upload failed"]; e.Level != model.EventLevelWarning || e.Category != model.EventCategoryUpload {
		t.Errorf("warn event = %+v", e)
	}
	e := byMsg["database error"]
	if e.Level != model.EventLevelError {
		t.Errorf("error event level = %q", e.Level)
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v (%s)", err, e.Metadata)
	}
	if meta["error"] != "disk full" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestEventLogHandler_CategoryFromWith(t *testing.T) {
	q := testutil.TestQueries(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, q)).With("category", model.EventCategoryAuth)

	logger.Warn("something odd", "ip", "192.0.2.1")

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Category != model.EventCategoryAuth {
		t.Errorf("category = %q, want auth", events[0].Category)
	}
	if strings.Contains(events[0].Metadata, "category") {
		t.Errorf("category leaked into metadata: %s", events[0].Metadata)
	}
}

func TestEventLogHandler_RequestPath(t *testing.T) {
	q := testutil.TestQueries(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, q))

	h := middleware.RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "content update failed")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/admin/api/skills/1", nil))

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if !strings.Contains(events[0].Metadata, `"path":"/admin/api/skills/1"`) {
		t.Errorf("metadata = %s", events[0].Metadata)
	}
	if events[0].Category != model.EventCategoryContent {
		t.Errorf("category = %q", events[0].Category)
	}
}

func TestEventLogHandler_Group(t *testing.T) {
	q := testutil.TestQueries(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, q)).WithGroup("crop")

	logger.Warn("encode failed", "dest", "profile")

	events := listEvents(t, q)
	if len(events) != 1 || !strings.Contains(events[0].Metadata, `"crop.dest":"profile"`) {
		t.Errorf("events = %+v", events)
	}
}

func TestInferCategory(t *testing.T) {
	tests := map[string]string{
		"login rate limit exceeded": model.EventCategoryAuth,
		"uploaded object orphaned":  model.EventCategoryUpload,
		"snapshot load incomplete":  model.EventCategoryContent,
		"server starting":           model.EventCategorySystem,
	}
	for msg, want := range tests {
		if got := inferCategory(msg); got != want {
			t.Errorf("inferCategory(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", nil)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}
