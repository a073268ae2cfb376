// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/scheduler"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
	"github.com/olegiv/folio-go/internal/webhook"
)

type fakeJobs struct {
	triggered []string
}

func (f *fakeJobs) List() []scheduler.JobInfo {
	return []scheduler.JobInfo{{Name: "prune-events", Schedule: "30 3 * * *"}}
}

func (f *fakeJobs) Trigger(_ context.Context, name string) error {
	if name != "prune-events" {
		return scheduler.ErrUnknownJob
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func opsRouter(h *OpsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/admin/api/events", h.Events)
	r.Get("/admin/api/jobs", h.Jobs)
	r.Post("/admin/api/jobs/{name}/run", h.RunJob)
	r.Post("/admin/api/webhook/test", h.TestWebhook)
	return r
}

func TestOpsEventsPagination(t *testing.T) {
	q := testutil.TestQueries(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range eventsPerPage + 5 {
		_, err := q.CreateEvent(ctx, store.CreateEventParams{
			Level:     model.EventLevelInfo,
			Category:  model.EventCategoryContent,
			Message:   "record saved",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}
	router := opsRouter(NewOpsHandler(q, &fakeJobs{}, testutil.TestLoggerSilent()))

	var page struct {
		Events  []model.Event `json:"events"`
		Page    int           `json:"page"`
		HasNext bool          `json:"has_next"`
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/events", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(page.Events) != eventsPerPage || !page.HasNext || page.Page != 1 {
		t.Errorf("page 1: %d events, has_next %v, page %d", len(page.Events), page.HasNext, page.Page)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/events?page=2", nil))
	page.Events = nil
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(page.Events) != 5 || page.HasNext {
		t.Errorf("page 2: %d events, has_next %v", len(page.Events), page.HasNext)
	}
}

func TestOpsJobs(t *testing.T) {
	jobs := &fakeJobs{}
	router := opsRouter(NewOpsHandler(testutil.TestQueries(t), jobs, testutil.TestLoggerSilent()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/jobs", nil))
	var list struct {
		Jobs []scheduler.JobInfo `json:"jobs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].Name != "prune-events" {
		t.Errorf("jobs = %+v", list.Jobs)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/api/jobs/prune-events/run", nil))
	if w.Code != http.StatusOK {
		t.Errorf("run status = %d", w.Code)
	}
	if len(jobs.triggered) != 1 {
		t.Errorf("triggered = %v", jobs.triggered)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/api/jobs/nope/run", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

type fakeSender struct {
	events []*webhook.Event
	err    error
}

func (f *fakeSender) Dispatch(_ context.Context, event *webhook.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func TestOpsTestWebhook(t *testing.T) {
	q := testutil.TestQueries(t)
	logger := testutil.TestLoggerSilent()

	w := httptest.NewRecorder()
	opsRouter(NewOpsHandler(q, &fakeJobs{}, logger)).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/api/webhook/test", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unconfigured status = %d, want %d", w.Code, http.StatusNotFound)
	}

	sender := &fakeSender{}
	w = httptest.NewRecorder()
	opsRouter(NewOpsHandler(q, &fakeJobs{}, logger).WithWebhook(sender)).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/api/webhook/test", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(sender.events) != 1 || sender.events[0].Type != webhook.EventTest {
		t.Errorf("events = %+v", sender.events)
	}

	w = httptest.NewRecorder()
	opsRouter(NewOpsHandler(q, &fakeJobs{}, logger).WithWebhook(&fakeSender{err: webhook.ErrQueueFull})).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/api/webhook/test", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("queue full status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
