// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package upload moves encoded images into object storage and records the
// resulting public URL in the site settings.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/imaging"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/storage"
	"github.com/olegiv/folio-go/internal/util"
)

// CacheControl is the max-age in seconds stored with every upload.
const CacheControl = 3600

// Phase is the position of a job in the upload workflow.
type Phase int

// Upload phases. Done and Failed are terminal.
const (
	PhasePending Phase = iota
	PhaseUploading
	PhaseResolving
	PhasePersisting
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhasePending:    "pending",
	PhaseUploading:  "uploading",
	PhaseResolving:  "resolving",
	PhasePersisting: "persisting",
	PhaseDone:       "done",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "phase(" + strconv.Itoa(int(p)) + ")"
}

// PhotoWriter stores a photo URL in one settings field and returns the
// stored settings.
type PhotoWriter interface {
	SetPhoto(ctx context.Context, field model.PhotoField, url string) (model.SiteSettings, error)
}

// Result is the outcome of a job. Settings holds the settings the caller
// should display afterwards: the persisted row on success, the unchanged
// input when persisting failed.
type Result struct {
	Key       string
	URL       string
	Phase     Phase
	Settings  model.SiteSettings
	Persisted bool
}

// Coordinator runs upload jobs.
type Coordinator struct {
	bucket    storage.Bucket
	settings  PhotoWriter
	processor *imaging.Processor
	logger    *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New creates a coordinator. processor prepares uncropped uploads.
func New(bucket storage.Bucket, settings PhotoWriter, processor *imaging.Processor, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if processor == nil {
		processor = imaging.NewProcessor(0)
	}
	return &Coordinator{
		bucket:    bucket,
		settings:  settings,
		processor: processor,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for object keys.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Coordinator) epochMillis() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

// Key returns the object key for a cropped image sent to dest.
func (c *Coordinator) Key(dest model.Destination) string {
	return string(dest) + "-" + c.epochMillis() + ".jpeg"
}

// job tracks one run through the phases.
type job struct {
	phase  Phase
	key    string
	logger *slog.Logger
}

func (j *job) advance(to Phase) {
	j.logger.Debug("upload phase", "key", j.key, "from", j.phase, "to", to)
	j.phase = to
}

func (j *job) fail(err error) error {
	j.logger.Warn("upload failed", "category", model.EventCategoryUpload, "key", j.key, "phase", j.phase, "error", err)
	j.phase = PhaseFailed
	return err
}

// Commit uploads a cropped JPEG for dest. For the profile and about
// destinations the public URL is then persisted into that photo field alone;
// the other settings columns keep their stored values. The database is never
// written unless the upload and URL resolution both succeeded; if persisting
// fails the object stays in the bucket and the returned settings equal
// current.
func (c *Coordinator) Commit(ctx context.Context, blob []byte, dest model.Destination, current model.SiteSettings) (Result, error) {
	j := &job{key: c.Key(dest), logger: c.logger}
	res := Result{Key: j.key, Settings: current}

	if len(blob) == 0 {
		res.Phase = PhaseFailed
		return res, j.fail(apperr.Upload("upload.commit", errors.New("empty blob")))
	}

	url, err := c.store(ctx, j, blob, model.MimeTypeJPEG)
	if err != nil {
		res.Phase = j.phase
		return res, err
	}
	res.URL = url

	field, ok := dest.PhotoField()
	if !ok {
		j.advance(PhaseDone)
		res.Phase = j.phase
		return res, nil
	}

	j.advance(PhasePersisting)
	saved, err := c.settings.SetPhoto(ctx, field, url)
	if err != nil {
		res.Phase = PhaseFailed
		c.logger.Warn("uploaded object orphaned", "category", model.EventCategoryUpload, "key", j.key, "error", err)
		if apperr.KindOf(err) == apperr.KindUnknown {
			err = apperr.Persistence("upload.persist", err)
		}
		return res, j.fail(err)
	}

	j.advance(PhaseDone)
	res.Phase = j.phase
	res.Settings = saved
	res.Persisted = true
	c.logger.Info("photo updated", "category", model.EventCategoryUpload, "field", field, "key", j.key)
	return res, nil
}

// UploadRaw stores an uncropped project image under
// "<epochMillis>-<slugified name>". The image is re-encoded first, which
// applies EXIF orientation and strips metadata.
func (c *Coordinator) UploadRaw(ctx context.Context, name string, data []byte) (Result, error) {
	j := &job{logger: c.logger}

	prepared, mimeType, err := c.processor.Prepare(data)
	if err != nil {
		j.phase = PhaseFailed
		return Result{Phase: PhaseFailed}, apperr.Decode("upload.raw", err)
	}

	j.key = c.epochMillis() + "-" + rawName(name, mimeType)
	url, err := c.store(ctx, j, prepared, mimeType)
	if err != nil {
		return Result{Key: j.key, Phase: j.phase}, err
	}
	j.advance(PhaseDone)
	return Result{Key: j.key, URL: url, Phase: j.phase}, nil
}

// store runs the Uploading and Resolving phases.
func (c *Coordinator) store(ctx context.Context, j *job, data []byte, contentType string) (string, error) {
	j.advance(PhaseUploading)
	err := c.bucket.Upload(ctx, j.key, data, storage.UploadOptions{
		CacheControl: CacheControl,
		Upsert:       false,
		ContentType:  contentType,
	})
	if err != nil {
		return "", j.fail(apperr.Upload("upload.put", err))
	}

	j.advance(PhaseResolving)
	url, err := c.bucket.PublicURL(j.key)
	if err != nil {
		return "", j.fail(apperr.URLResolution("upload.resolve", err))
	}
	if url == "" {
		return "", j.fail(apperr.URLResolution("upload.resolve", fmt.Errorf("no public URL for %s", j.key)))
	}
	return url, nil
}

// rawName builds the file part of a raw upload key, forcing the extension
// to match the stored content type.
func rawName(name, mimeType string) string {
	slug := util.SlugifyFilename(name)
	return strings.TrimSuffix(slug, filepath.Ext(slug)) + imaging.Extension(mimeType)
}
