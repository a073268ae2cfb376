// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/scheduler"
	"github.com/olegiv/folio-go/internal/webhook"
)

// eventsPerPage is the page size of the event log.
const eventsPerPage = 50

// EventLister reads the event log.
type EventLister interface {
	ListEvents(ctx context.Context, limit, offset int) ([]model.Event, error)
}

// JobRunner lists and triggers maintenance jobs.
type JobRunner interface {
	List() []scheduler.JobInfo
	Trigger(ctx context.Context, name string) error
}

// WebhookSender queues a webhook event.
type WebhookSender interface {
	Dispatch(ctx context.Context, event *webhook.Event) error
}

// OpsHandler serves the event log and the maintenance jobs to the admin.
type OpsHandler struct {
	events  EventLister
	jobs    JobRunner
	webhook WebhookSender
	logger  *slog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(events EventLister, jobs JobRunner, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{events: events, jobs: jobs, logger: logger}
}

// WithWebhook enables the webhook test endpoint.
func (h *OpsHandler) WithWebhook(sender WebhookSender) *OpsHandler {
	h.webhook = sender
	return h
}

// Events handles GET /admin/api/events?page=N, newest first.
func (h *OpsHandler) Events(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	// One extra row tells whether a next page exists.
	events, err := h.events.ListEvents(r.Context(), eventsPerPage+1, (page-1)*eventsPerPage)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}
	hasNext := len(events) > eventsPerPage
	if hasNext {
		events = events[:eventsPerPage]
	}
	writeJSONSuccess(w, map[string]any{
		"events":   events,
		"page":     page,
		"has_next": hasNext,
	})
}

// Jobs handles GET /admin/api/jobs.
func (h *OpsHandler) Jobs(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"jobs": h.jobs.List()})
}

// RunJob handles POST /admin/api/jobs/{name}/run.
func (h *OpsHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.jobs.Trigger(r.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("job triggered by admin", "category", model.EventCategorySystem, "job", name, "user_id", middleware.GetUserID(r))
	writeJSONSuccess(w, nil)
}

// TestWebhook handles POST /admin/api/webhook/test.
func (h *OpsHandler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		writeJSONError(w, http.StatusNotFound, "Webhook is not configured")
		return
	}
	event := webhook.NewEvent(webhook.EventTest, webhook.TestEventData{Message: "Test delivery from folio"})
	if err := h.webhook.Dispatch(r.Context(), event); err != nil {
		h.logger.Error("failed to queue test webhook", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "Failed to queue test webhook")
		return
	}
	h.logger.Info("test webhook queued", "category", model.EventCategorySystem, "event_id", event.ID, "user_id", middleware.GetUserID(r))
	writeJSONSuccess(w, map[string]any{"event_id": event.ID})
}
