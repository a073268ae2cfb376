// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workspace

import (
	"context"
	"io"

	"github.com/olegiv/folio-go/internal/crop"
	"github.com/olegiv/folio-go/internal/model"
)

// CropView describes the open crop session.
type CropView struct {
	crop.View
	SourceDataURL string `json:"source_data_url,omitempty"`
}

// CropResult is the outcome of a committed crop.
type CropResult struct {
	Destination model.Destination `json:"destination"`
	URL         string            `json:"url"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Snapshot    *Snapshot         `json:"snapshot,omitempty"`
	Form        *Form             `json:"form,omitempty"`
}

// BeginCrop opens a crop session for dest, replacing any open one, reads
// the image from r and places the initial rectangle. Project crops need an
// open project form to receive the result.
func (w *Workspace) BeginCrop(ctx context.Context, dest model.Destination, r io.Reader, display crop.Size) (CropView, error) {
	if err := w.authorize(ctx); err != nil {
		return CropView{}, err
	}
	if dest == model.DestinationProject {
		if _, err := w.projectFormSeq(); err != nil {
			return CropView{}, err
		}
	}

	session := crop.New()
	w.mu.Lock()
	w.releaseCropLocked()
	w.crop = session
	w.cropSeq++
	seq := w.cropSeq
	w.mu.Unlock()

	if err := session.Select(ctx, r); err != nil {
		w.dropCrop(seq)
		return CropView{}, err
	}
	if !w.currentCrop(seq) {
		session.Release()
		return CropView{}, ErrSuperseded
	}
	if err := session.Preview(dest, display); err != nil {
		w.dropCrop(seq)
		return CropView{}, err
	}
	if _, err := session.Place(); err != nil {
		w.dropCrop(seq)
		return CropView{}, err
	}

	return CropView{View: session.View(), SourceDataURL: session.SourceDataURL()}, nil
}

// CropSession returns the open crop session.
func (w *Workspace) CropSession() (CropView, bool) {
	w.mu.Lock()
	session := w.crop
	w.mu.Unlock()
	if session == nil {
		return CropView{}, false
	}
	return CropView{View: session.View()}, true
}

// AdjustCrop replaces the pending rectangle of the open crop session.
func (w *Workspace) AdjustCrop(rect crop.Rect) (CropView, error) {
	w.mu.Lock()
	session := w.crop
	w.mu.Unlock()
	if session == nil {
		return CropView{}, ErrNoCrop
	}
	if err := session.Adjust(rect); err != nil {
		return CropView{}, err
	}
	return CropView{View: session.View()}, nil
}

// CommitCrop encodes the open crop session and hands the blob to the upload
// coordinator. Profile and about photos are persisted into the settings and
// the snapshot is reloaded; project images are appended to the open project
// form unless the crop session or the form was replaced meanwhile. A failed
// encode leaves the session open for another attempt.
func (w *Workspace) CommitCrop(ctx context.Context) (CropResult, error) {
	if err := w.authorize(ctx); err != nil {
		return CropResult{}, err
	}
	done, err := w.begin("crop")
	if err != nil {
		return CropResult{}, err
	}
	defer done()

	w.mu.Lock()
	session, seq := w.crop, w.cropSeq
	current := w.snapshot.Settings.Clone()
	var formSeq uint64
	if f, ok := w.forms[model.CollectionProjects]; ok {
		formSeq = f.seq
	}
	w.mu.Unlock()
	if session == nil {
		return CropResult{}, ErrNoCrop
	}
	dest := session.Destination()

	out, err := session.Commit(ctx)
	if err != nil {
		return CropResult{}, err
	}
	if !w.currentCrop(seq) {
		return CropResult{}, ErrSuperseded
	}

	res, err := w.deps.Uploads.Commit(ctx, out.Data, dest, current)
	replaced := !w.currentCrop(seq)
	w.dropCrop(seq)
	if err != nil {
		return CropResult{}, err
	}

	result := CropResult{Destination: dest, URL: res.URL, Width: out.Width, Height: out.Height}
	if dest == model.DestinationProject {
		if replaced {
			w.logger.Info("discarding image of replaced crop session", "url", res.URL)
			return CropResult{}, ErrSuperseded
		}
		form, err := w.appendProjectImage(formSeq, res.URL)
		if err != nil {
			return result, err
		}
		result.Form = &form
		return result, nil
	}

	w.changed(model.CollectionSettings)
	snap, err := w.reload(ctx)
	result.Snapshot = &snap
	return result, err
}

// CancelCrop discards the open crop session.
func (w *Workspace) CancelCrop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.crop == nil {
		return ErrNoCrop
	}
	err := w.crop.Cancel()
	w.releaseCropLocked()
	return err
}

func (w *Workspace) releaseCropLocked() {
	if w.crop != nil {
		w.crop.Release()
		w.crop = nil
	}
}

func (w *Workspace) currentCrop(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.crop != nil && w.cropSeq == seq
}

// dropCrop releases the session seq if it is still the open one.
func (w *Workspace) dropCrop(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cropSeq == seq {
		w.releaseCropLocked()
	}
}
