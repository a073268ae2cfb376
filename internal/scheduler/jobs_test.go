// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/storage"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
)

type countingEvicter struct {
	idle time.Duration
	n    int
}

func (e *countingEvicter) EvictIdle(idle time.Duration) int {
	e.idle = idle
	return e.n
}

func TestEvictWorkspacesJob(t *testing.T) {
	ev := &countingEvicter{n: 2}
	job := EvictWorkspaces(ev, 30*time.Minute, testutil.TestLoggerSilent())
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ev.idle != 30*time.Minute {
		t.Errorf("EvictIdle called with %v", ev.idle)
	}
}

func TestPruneEventsJob(t *testing.T) {
	q := testutil.TestQueries(t)
	ctx := context.Background()

	if _, err := q.CreateEvent(ctx, store.CreateEventParams{
		Level:    "warn",
		Category: model.EventCategorySystem,
		Message:  "old",
	}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	// Negative retention puts the cutoff in the future.
	job := PruneEvents(q, -time.Hour, testutil.TestLoggerSilent())
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	events, err := q.ListEvents(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("%d events left, want 0", len(events))
	}
}

func TestPruneStateJob(t *testing.T) {
	var calls int
	p := PrunerFunc(func() int { calls++; return 1 })
	job := PruneState("prune", testutil.TestLoggerSilent(), p, p)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("pruners called %d times, want 2", calls)
	}
}

func TestOrphanFinder(t *testing.T) {
	ctx := context.Background()
	q := testutil.TestQueries(t)
	repo := content.NewRepository(q, testutil.TestLoggerSilent())

	bucket, err := storage.NewFSBucket(t.TempDir(), "/storage")
	if err != nil {
		t.Fatalf("NewFSBucket: %v", err)
	}
	put := func(key string) string {
		t.Helper()
		if err := bucket.Upload(ctx, key, []byte("x"), storage.UploadOptions{ContentType: "image/jpeg"}); err != nil {
			t.Fatalf("Upload(%s): %v", key, err)
		}
		u, _ := bucket.PublicURL(key)
		return u
	}

	profile := put("profile-1.jpeg")
	shot := put("project-2.jpeg")
	put("about-3.jpeg")

	settings, err := repo.Settings.List(ctx)
	if err != nil || len(settings) != 1 {
		t.Fatalf("Settings.List = %v, %v", settings, err)
	}
	if _, err := repo.Settings.Upsert(ctx, settings[0].WithPhoto(model.PhotoFieldProfile, profile)); err != nil {
		t.Fatalf("settings upsert: %v", err)
	}
	if _, err := repo.Projects.Upsert(ctx, model.Project{
		Title:            "Folio",
		ShortDescription: "Portfolio",
		Media: model.MediaList{
			{Kind: model.MediaImage, URL: shot},
			{Kind: model.MediaVideo, URL: "https://video.example/v"},
		},
	}); err != nil {
		t.Fatalf("project upsert: %v", err)
	}

	orphans, err := OrphanFinder{Objects: bucket, Content: repo}.Find(ctx)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(orphans) != 1 || orphans[0].Key != "about-3.jpeg" {
		t.Errorf("orphans = %+v, want about-3.jpeg", orphans)
	}

	young, err := OrphanFinder{Objects: bucket, Content: repo, MinAge: time.Hour}.Find(ctx)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(young) != 0 {
		t.Errorf("orphans younger than MinAge reported: %+v", young)
	}
}
