// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workspace

import (
	"context"
	"sync"
	"time"
)

// Registry keeps one Workspace per signed-in admin.
type Registry struct {
	deps Deps

	mu         sync.Mutex
	workspaces map[int64]*Workspace
}

// NewRegistry creates an empty registry whose workspaces share deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:       deps,
		workspaces: make(map[int64]*Workspace),
	}
}

// Get returns the workspace of userID, creating it on first use.
func (r *Registry) Get(userID int64) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[userID]
	if !ok {
		w = New(userID, r.deps)
		r.workspaces[userID] = w
	}
	return w
}

// SignOut ends the session on ctx and drops the workspace of userID.
func (r *Registry) SignOut(ctx context.Context, userID int64) error {
	w := r.Get(userID)
	r.Drop(userID)
	return w.SignOut(ctx)
}

// Drop closes and forgets the workspace of userID.
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	w, ok := r.workspaces[userID]
	delete(r.workspaces, userID)
	r.mu.Unlock()
	if ok {
		w.Close()
	}
}

// EvictIdle drops workspaces not used for longer than idle and returns how
// many were dropped.
func (r *Registry) EvictIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	var stale []*Workspace
	for id, w := range r.workspaces {
		if w.LastUsed().Before(cutoff) {
			stale = append(stale, w)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
