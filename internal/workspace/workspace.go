// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package workspace is the admin workspace controller. A Workspace owns the
// in-memory snapshot of all four collections for one signed-in admin,
// dispatches form, delete and crop intents, and reloads the snapshot from
// the store after every successful mutation.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/crop"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/upload"
)

var (
	// ErrUnauthenticated means the request has no signed-in admin; the
	// caller should send the user to the login page.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrBusy is returned while the same operation is still running.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotConfirmed is returned when a delete was not confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrNoForm is returned by form intents when the form is not open.
	ErrNoForm = errors.New("form is not open")
	// ErrNoCrop is returned by crop intents when no crop session is open.
	ErrNoCrop = errors.New("no crop session")
	// ErrSuperseded is returned when the form or crop session an operation
	// belonged to was closed or replaced before it finished. Its result is
	// discarded.
	ErrSuperseded = errors.New("result discarded: session was replaced")
)

// Identity resolves the signed-in admin of a request.
type Identity interface {
	// CurrentUser returns the admin signed in on ctx, or an error if there is none.
	CurrentUser(ctx context.Context) (model.User, error)
	// SignOut ends the session carried by ctx.
	SignOut(ctx context.Context) error
}

// Uploader is the part of the upload coordinator the workspace uses.
type Uploader interface {
	Commit(ctx context.Context, blob []byte, dest model.Destination, current model.SiteSettings) (upload.Result, error)
	UploadRaw(ctx context.Context, name string, data []byte) (upload.Result, error)
}

// Snapshot is the in-memory copy of all collections.
type Snapshot struct {
	Settings    model.SiteSettings          `json:"settings"`
	Experiences []model.Experience          `json:"experiences"`
	Projects    []model.Project             `json:"projects"`
	Skills      []model.Skill               `json:"skills"`
	Errors      map[model.Collection]string `json:"errors,omitempty"`
	LoadedAt    time.Time                   `json:"loaded_at"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Settings = s.Settings.Clone()
	out.Experiences = slices.Clone(s.Experiences)
	out.Projects = slices.Clone(s.Projects)
	out.Skills = slices.Clone(s.Skills)
	if s.Errors != nil {
		out.Errors = make(map[model.Collection]string, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

// Deps are the collaborators shared by all workspaces.
type Deps struct {
	Repository *content.Repository
	Uploads    Uploader
	Identity   Identity
	Logger     *slog.Logger
	// OnChange is called after every successful mutation of a collection.
	OnChange func(model.Collection)
}

// Workspace is the admin workspace of one user.
type Workspace struct {
	userID int64
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	snapshot Snapshot
	forms    map[model.Collection]*Form
	formSeq  uint64
	crop     *crop.Session
	cropSeq  uint64
	lastUsed time.Time
	closed   bool
}

// New creates a workspace for userID.
func New(userID int64, deps Deps) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		userID:   userID,
		deps:     deps,
		logger:   logger.With("user_id", userID),
		inflight: make(map[string]struct{}),
		snapshot: emptySnapshot(),
		forms:    make(map[model.Collection]*Form),
		lastUsed: time.Now(),
	}
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Settings:    model.SiteSettings{ID: model.SettingsID, SocialLinks: []model.SocialLink{}},
		Experiences: []model.Experience{},
		Projects:    []model.Project{},
		Skills:      []model.Skill{},
	}
}

// UserID returns the owner of the workspace.
func (w *Workspace) UserID() int64 {
	return w.userID
}

// Snapshot returns a copy of the current snapshot without reloading it.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot.clone()
}

// LastUsed returns the time of the last intent.
func (w *Workspace) LastUsed() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// authorize checks that ctx belongs to the workspace owner.
func (w *Workspace) authorize(ctx context.Context) error {
	if w.deps.Identity == nil {
		return ErrUnauthenticated
	}
	user, err := w.deps.Identity.CurrentUser(ctx)
	if err != nil || user.ID != w.userID {
		return ErrUnauthenticated
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrUnauthenticated
	}
	w.lastUsed = time.Now()
	return nil
}

// begin marks op as running. The returned func must be called when op ends.
func (w *Workspace) begin(op string) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[op]; busy {
		return nil, fmt.Errorf("%w: %s", ErrBusy, op)
	}
	w.inflight[op] = struct{}{}
	return func() {
		w.mu.Lock()
		delete(w.inflight, op)
		w.mu.Unlock()
	}, nil
}

// LoadSnapshot reloads all four collections. Each collection loads
// independently: a failing collection keeps its previous rows, is listed in
// Snapshot.Errors and contributes to the returned fetch error, while the
// others are still refreshed.
func (w *Workspace) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	if err := w.authorize(ctx); err != nil {
		return Snapshot{}, err
	}
	done, err := w.begin("load")
	if err != nil {
		return w.Snapshot(), err
	}
	defer done()
	return w.reload(ctx)
}

func (w *Workspace) reload(ctx context.Context) (Snapshot, error) {
	repo := w.deps.Repository

	var (
		settings    []model.SiteSettings
		experiences []model.Experience
		projects    []model.Project
		skills      []model.Skill
		wg          sync.WaitGroup
	)
	errs := make([]error, len(model.Collections))
	loaders := []func() error{
		func() (err error) {
			settings, err = repo.Settings.List(ctx)
			return err
		},
		func() (err error) {
			experiences, err = repo.Experiences.List(ctx)
			return err
		},
		func() (err error) {
			projects, err = repo.Projects.List(ctx)
			return err
		},
		func() (err error) {
			skills, err = repo.Skills.List(ctx)
			return err
		},
	}
	for i, load := range loaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = load()
		}()
	}
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	failed := map[model.Collection]string{}
	var failures []error
	var names []string
	for i, c := range model.Collections {
		if errs[i] != nil {
			failed[c] = apperr.Message(errs[i])
			failures = append(failures, errs[i])
			names = append(names, string(c))
		}
	}

	snap := w.snapshot
	if errs[0] == nil {
		snap.Settings = emptySnapshot().Settings
		if len(settings) > 0 {
			snap.Settings = settings[0]
		}
	}
	if errs[1] == nil {
		snap.Experiences = experiences
	}
	if errs[2] == nil {
		snap.Projects = projects
	}
	if errs[3] == nil {
		snap.Skills = skills
	}
	snap.Errors = nil
	if len(failed) > 0 {
		snap.Errors = failed
	}
	snap.LoadedAt = time.Now()
	w.snapshot = snap

	if len(failures) > 0 {
		w.logger.Warn("snapshot load incomplete", "category", model.EventCategoryContent, "collections", strings.Join(names, ","))
		return snap.clone(), apperr.New(apperr.KindFetch, "workspace.load",
			"failed to load "+strings.Join(names, ", "), errors.Join(failures...))
	}
	return snap.clone(), nil
}

// SubmitSettingsForm saves the full settings draft, social links included,
// and reloads the snapshot. Any string values are accepted.
func (w *Workspace) SubmitSettingsForm(ctx context.Context, draft model.SiteSettings) (Snapshot, error) {
	if err := w.authorize(ctx); err != nil {
		return Snapshot{}, err
	}
	done, err := w.begin("settings")
	if err != nil {
		return w.Snapshot(), err
	}
	defer done()

	draft = draft.Clone()
	draft.ID = model.SettingsID
	if _, err := w.deps.Repository.Settings.Upsert(ctx, draft); err != nil {
		return w.Snapshot(), err
	}
	w.changed(model.CollectionSettings)
	return w.reload(ctx)
}

// DeleteRow removes a row after confirm returns true, then reloads.
func (w *Workspace) DeleteRow(ctx context.Context, c model.Collection, id string, confirm func() bool) (Snapshot, error) {
	if err := w.authorize(ctx); err != nil {
		return Snapshot{}, err
	}
	if confirm == nil || !confirm() {
		return w.Snapshot(), ErrNotConfirmed
	}
	done, err := w.begin("delete:" + string(c) + ":" + id)
	if err != nil {
		return w.Snapshot(), err
	}
	defer done()

	if err := w.deps.Repository.Remove(ctx, c, id); err != nil {
		return w.Snapshot(), err
	}
	w.logger.Info("row deleted", "category", model.EventCategoryContent, "collection", c, "id", id)
	w.changed(c)
	return w.reload(ctx)
}

// SignOut ends the admin session and closes the workspace.
func (w *Workspace) SignOut(ctx context.Context) error {
	var err error
	if w.deps.Identity != nil {
		err = w.deps.Identity.SignOut(ctx)
	}
	w.Close()
	return err
}

// Close releases the crop session and rejects further intents.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.releaseCropLocked()
	clear(w.forms)
}

func (w *Workspace) changed(c model.Collection) {
	if w.deps.OnChange != nil {
		w.deps.OnChange(c)
	}
}
