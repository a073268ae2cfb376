// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging builds the application logger. Records at WARN and above
// are also written to the events table so failed uploads, orphaned objects
// and lockouts can be reviewed later.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// EventWriter stores event log entries.
type EventWriter interface {
	CreateEvent(ctx context.Context, arg store.CreateEventParams) (model.Event, error)
}

// writeTimeout bounds a single event insert.
const writeTimeout = 2 * time.Second

// EventLogHandler wraps a slog.Handler and also writes records at or above
// its level to an EventWriter.
type EventLogHandler struct {
	inner  slog.Handler
	events EventWriter
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewEventLogHandler wraps inner, forwarding WARN and above to events.
func NewEventLogHandler(inner slog.Handler, events EventWriter) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, events, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel wraps inner with a custom event threshold.
func NewEventLogHandlerWithLevel(inner slog.Handler, events EventWriter, level slog.Level) *EventLogHandler {
	return &EventLogHandler{inner: inner, events: events, level: level}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level && h.events != nil {
		h.store(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler. The attributes are kept so a logger
// created with With("category", ...) still categorizes its events.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *EventLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

// store writes r to the event log. The request context may already be
// cancelled, so a fresh one is used. Errors are dropped; logging them would
// recurse into this handler.
func (h *EventLogHandler) store(ctx context.Context, r slog.Record) {
	category := model.EventCategorySystem
	meta := make(map[string]any, r.NumAttrs()+len(h.attrs)+1)

	collect := func(a slog.Attr) {
		if a.Key == "category" || a.Key == h.group+".category" {
			category = a.Value.String()
			return
		}
		meta[a.Key] = attrValue(a.Value)
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(h.qualify([]slog.Attr{a})[0])
		return true
	})
	if path := middleware.GetRequestPath(ctx); path != "" {
		meta["path"] = path
	}
	if category == model.EventCategorySystem {
		category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	_, _ = h.events.CreateEvent(wctx, store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		m := make(map[string]any)
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category for records logged without one.
func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "auth") ||
		strings.Contains(msg, "csrf") || strings.Contains(msg, "session"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "upload") || strings.Contains(msg, "orphan") ||
		strings.Contains(msg, "storage"):
		return model.EventCategoryUpload
	case strings.Contains(msg, "content") || strings.Contains(msg, "snapshot") ||
		strings.Contains(msg, "settings"):
		return model.EventCategoryContent
	default:
		return model.EventCategorySystem
	}
}

// ParseLevel maps a configured level name to a slog.Level; unknown names
// give INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to w at level. With a non-nil events
// writer, warnings and errors are also stored in the event log.
func New(w io.Writer, level string, events EventWriter) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var h slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	if events != nil {
		h = NewEventLogHandler(h, events)
	}
	return slog.New(h)
}
