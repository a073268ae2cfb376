// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workspace

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/content"
	"github.com/olegiv/folio-go/internal/model"
)

// Form is an open create or edit form of a collection.
type Form struct {
	Collection   model.Collection  `json:"collection"`
	EditTargetID string            `json:"edit_target_id,omitempty"`
	Draft        any               `json:"draft"`
	Error        string            `json:"error,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`

	seq uint64
}

func (f *Form) copy() Form {
	out := *f
	out.Fields = maps.Clone(f.Fields)
	if d, ok := f.Draft.(ProjectDraft); ok {
		d.Media = append(d.Media[:0:0], d.Media...)
		out.Draft = d
	}
	return out
}

// OpenForm opens the form of collection c. With an empty editTargetID the
// form creates a new record; otherwise it is filled from the snapshot row.
// An already open form of c is replaced.
func (w *Workspace) OpenForm(c model.Collection, editTargetID string) (Form, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var draft any
	if editTargetID == "" {
		d, err := newDraft(c)
		if err != nil {
			return Form{}, err
		}
		draft = d
	} else {
		rec, ok := w.findLocked(c, editTargetID)
		if !ok {
			return Form{}, fmt.Errorf("%w: %s %s", content.ErrNotFound, c, editTargetID)
		}
		draft = draftFrom(rec)
	}

	w.formSeq++
	f := &Form{Collection: c, EditTargetID: editTargetID, Draft: draft, seq: w.formSeq}
	w.forms[c] = f
	w.lastUsed = time.Now()
	return f.copy(), nil
}

// CloseForm discards the form of collection c.
func (w *Workspace) CloseForm(c model.Collection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.forms, c)
}

// Form returns the open form of collection c.
func (w *Workspace) Form(c model.Collection) (Form, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.forms[c]
	if !ok {
		return Form{}, false
	}
	return f.copy(), true
}

func (w *Workspace) findLocked(c model.Collection, id string) (model.Record, bool) {
	switch c {
	case model.CollectionExperiences:
		for _, e := range w.snapshot.Experiences {
			if e.ID == id {
				return e, true
			}
		}
	case model.CollectionProjects:
		for _, p := range w.snapshot.Projects {
			if p.ID == id {
				return p, true
			}
		}
	case model.CollectionSkills:
		for _, s := range w.snapshot.Skills {
			if s.ID == id {
				return s, true
			}
		}
	}
	return nil, false
}

// SubmitCollectionForm normalizes draft, saves it as a new record or as the
// record editTargetID, then closes the form and reloads the snapshot. On
// failure the form of c stays open with the submitted draft and the error;
// the snapshot is not touched.
//
// A project draft without media takes the media of the open project form,
// which is where media intents collect images and videos.
func (w *Workspace) SubmitCollectionForm(ctx context.Context, c model.Collection, draft any, editTargetID string) (Snapshot, error) {
	if err := w.authorize(ctx); err != nil {
		return Snapshot{}, err
	}
	done, err := w.begin("form:" + string(c))
	if err != nil {
		return w.Snapshot(), err
	}
	defer done()

	w.mu.Lock()
	if pd, ok := draft.(ProjectDraft); ok && pd.Media == nil {
		if f, open := w.forms[c]; open {
			if fd, ok := f.Draft.(ProjectDraft); ok {
				pd.Media = append(model.MediaList{}, fd.Media...)
				draft = pd
			}
		}
	}
	w.mu.Unlock()

	rec, err := toRecord(c, draft, editTargetID)
	if err == nil {
		_, err = w.deps.Repository.Upsert(ctx, c, rec)
	}
	if err != nil {
		w.keepFailedDraft(c, draft, editTargetID, err)
		return w.Snapshot(), err
	}

	w.mu.Lock()
	delete(w.forms, c)
	w.mu.Unlock()

	w.logger.Info("record saved", "category", model.EventCategoryContent, "collection", c, "id", editTargetID)
	w.changed(c)
	return w.reload(ctx)
}

func (w *Workspace) keepFailedDraft(c model.Collection, draft any, editTargetID string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, mismatch := toRecord(c, draft, editTargetID); mismatch != nil {
		draft = nil
	}
	f, ok := w.forms[c]
	if !ok {
		if draft == nil {
			return
		}
		w.formSeq++
		f = &Form{Collection: c, seq: w.formSeq}
		w.forms[c] = f
	}
	f.EditTargetID = editTargetID
	if draft != nil {
		f.Draft = draft
	}
	f.Error = apperr.Message(err)
	f.Fields = nil
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		f.Fields = maps.Clone(appErr.Fields)
	}
}

// AddProjectVideo appends a video URL to the open project form.
func (w *Workspace) AddProjectVideo(url string) (Form, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Form{}, apperr.Validation("workspace.video", errors.New("video URL is required"))
	}
	return w.updateProjectDraft(func(d *ProjectDraft) error {
		d.Media = append(d.Media, model.MediaItem{Kind: model.MediaVideo, URL: url})
		return nil
	})
}

// RemoveProjectMedia drops the media entry at index i of the open project form.
func (w *Workspace) RemoveProjectMedia(i int) (Form, error) {
	return w.updateProjectDraft(func(d *ProjectDraft) error {
		if i < 0 || i >= len(d.Media) {
			return apperr.Validation("workspace.media", fmt.Errorf("no media entry at index %d", i))
		}
		d.Media = d.Media.Without(i)
		return nil
	})
}

// UploadProjectImage stores an uncropped image and appends it to the open
// project form. If the form was closed or reopened during the upload the
// image is not added and ErrSuperseded is returned.
func (w *Workspace) UploadProjectImage(ctx context.Context, name string, data []byte) (Form, error) {
	if err := w.authorize(ctx); err != nil {
		return Form{}, err
	}
	seq, err := w.projectFormSeq()
	if err != nil {
		return Form{}, err
	}
	done, err := w.begin("project-media")
	if err != nil {
		return Form{}, err
	}
	defer done()

	res, err := w.deps.Uploads.UploadRaw(ctx, name, data)
	if err != nil {
		return Form{}, err
	}
	return w.appendProjectImage(seq, res.URL)
}

func (w *Workspace) projectFormSeq() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.forms[model.CollectionProjects]
	if !ok {
		return 0, ErrNoForm
	}
	return f.seq, nil
}

func (w *Workspace) appendProjectImage(seq uint64, url string) (Form, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.forms[model.CollectionProjects]
	if !ok || f.seq != seq {
		w.logger.Info("discarding image for closed project form", "url", url)
		return Form{}, ErrSuperseded
	}
	d, _ := f.Draft.(ProjectDraft)
	d.Media = append(d.Media, model.MediaItem{Kind: model.MediaImage, URL: url})
	f.Draft = d
	return f.copy(), nil
}

func (w *Workspace) updateProjectDraft(fn func(*ProjectDraft) error) (Form, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.forms[model.CollectionProjects]
	if !ok {
		return Form{}, ErrNoForm
	}
	d, _ := f.Draft.(ProjectDraft)
	d.Media = append(model.MediaList{}, d.Media...)
	if err := fn(&d); err != nil {
		return Form{}, err
	}
	f.Draft = d
	return f.copy(), nil
}
