// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/storage"
)

// WorkspaceEvicter drops idle admin workspaces.
type WorkspaceEvicter interface {
	EvictIdle(idle time.Duration) int
}

// EvictWorkspaces closes workspaces, and with them open crop sessions,
// that were not used for idle.
func EvictWorkspaces(reg WorkspaceEvicter, idle time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:        "evict-workspaces",
		Description: "Close idle admin workspaces and their crop sessions",
		Schedule:    "@every 10m",
		Run: func(context.Context) error {
			if n := reg.EvictIdle(idle); n > 0 {
				logger.Info("evicted idle workspaces", "count", n)
			}
			return nil
		},
	}
}

// EventPruner deletes old event log entries.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneEvents deletes event log entries older than retention.
func PruneEvents(events EventPruner, retention time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:        "prune-events",
		Description: "Delete event log entries past the retention period",
		Schedule:    "30 3 * * *",
		Run: func(ctx context.Context) error {
			n, err := events.DeleteEventsBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return fmt.Errorf("pruning events: %w", err)
			}
			if n > 0 {
				logger.Info("pruned events", "count", n)
			}
			return nil
		},
	}
}

// Pruner is in-memory state that can drop stale entries.
type Pruner interface {
	Prune() int
}

// PruneState calls Prune on each pruner, e.g. login protection and the
// memory cache.
func PruneState(name string, logger *slog.Logger, pruners ...Pruner) Job {
	return Job{
		Name:        name,
		Description: "Drop expired in-memory entries",
		Schedule:    "@every 10m",
		Run: func(context.Context) error {
			total := 0
			for _, p := range pruners {
				total += p.Prune()
			}
			if total > 0 {
				logger.Debug("pruned in-memory state", "job", name, "count", total)
			}
			return nil
		},
	}
}

// PrunerFunc adapts a function to Pruner.
type PrunerFunc func() int

// Prune implements Pruner.
func (f PrunerFunc) Prune() int { return f() }

// ObjectStore lists stored objects and maps public URLs back to keys.
type ObjectStore interface {
	List(ctx context.Context) ([]storage.ObjectInfo, error)
	KeyFromURL(u string) (string, bool)
}

// OrphanFinder finds uploaded objects that no content references. Such
// objects are left behind when persisting a photo URL fails or a project
// form is abandoned after an upload.
type OrphanFinder struct {
	Objects ObjectStore
	Content *content.Repository
	// MinAge skips objects younger than this; their form may still be open.
	MinAge time.Duration
}

// Find returns the unreferenced objects.
func (f OrphanFinder) Find(ctx context.Context) ([]storage.ObjectInfo, error) {
	referenced, err := f.referencedKeys(ctx)
	if err != nil {
		return nil, err
	}
	objects, err := f.Objects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}

	cutoff := time.Now().Add(-f.MinAge)
	var orphans []storage.ObjectInfo
	for _, o := range objects {
		if _, ok := referenced[o.Key]; ok || o.ModTime.After(cutoff) {
			continue
		}
		orphans = append(orphans, o)
	}
	return orphans, nil
}

func (f OrphanFinder) referencedKeys(ctx context.Context) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	add := func(u string) {
		if key, ok := f.Objects.KeyFromURL(u); ok {
			keys[key] = struct{}{}
		}
	}

	settings, err := f.Content.Settings.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		add(s.ProfilePhotoURL)
		add(s.AboutPhotoURL)
		add(s.CVURL)
	}

	projects, err := f.Content.Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		for _, m := range p.Media {
			if m.Kind == model.MediaImage {
				add(m.URL)
			}
		}
	}
	return keys, nil
}

// ReportOrphans logs unreferenced uploads. Objects are never deleted
// automatically.
func ReportOrphans(f OrphanFinder, logger *slog.Logger) Job {
	return Job{
		Name:        "report-orphans",
		Description: "Log uploaded objects that no content references",
		Schedule:    "0 4 * * *",
		Run: func(ctx context.Context) error {
			orphans, err := f.Find(ctx)
			if err != nil {
				return fmt.Errorf("finding orphaned objects: %w", err)
			}
			var size int64
			for _, o := range orphans {
				size += o.Size
				logger.Info("orphaned object", "category", model.EventCategoryUpload, "key", o.Key, "size", o.Size)
			}
			if len(orphans) > 0 {
				logger.Warn("orphaned uploads found", "category", model.EventCategoryUpload, "count", len(orphans), "bytes", size)
			}
			return nil
		},
	}
}
