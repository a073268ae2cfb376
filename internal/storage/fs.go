// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olegiv/folio-go/internal/util"
)

const metaDir = ".meta"

type objectMeta struct {
	ContentType  string `json:"content_type"`
	CacheControl int    `json:"cache_control"`
}

// FSBucket stores objects as files in a single directory and serves them
// over HTTP.
type FSBucket struct {
	dir     string
	baseURL string
}

// NewFSBucket creates the bucket directory if needed. baseURL is the public
// prefix objects are served under, e.g. "/storage" or "https://cdn.example.com".
func NewFSBucket(dir, baseURL string) (*FSBucket, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving bucket directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(absDir, metaDir), 0755); err != nil {
		return nil, fmt.Errorf("creating bucket directory: %w", err)
	}
	return &FSBucket{dir: absDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the absolute bucket directory.
func (b *FSBucket) Dir() string {
	return b.dir
}

// BaseURL returns the public prefix objects are served under.
func (b *FSBucket) BaseURL() string {
	return b.baseURL
}

// Upload writes data under key. With Upsert false the write fails with
// ErrObjectExists if the key is taken.
func (b *FSBucket) Upload(ctx context.Context, key string, data []byte, opts UploadOptions) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := b.path(key)
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Upsert {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrObjectExists, key)
	}
	if err != nil {
		return fmt.Errorf("creating object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("writing object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("closing object: %w", err)
	}

	meta, err := json.Marshal(objectMeta{ContentType: opts.ContentType, CacheControl: opts.CacheControl})
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.metaPath(key), meta, 0644); err != nil {
		return fmt.Errorf("writing object metadata: %w", err)
	}
	return nil
}

// Read returns the object stored under key.
func (b *FSBucket) Read(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	path, err := b.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("reading object: %w", err)
	}
	info := ObjectInfo{Key: key, Size: int64(len(data)), ContentType: b.readMeta(key).ContentType}
	if st, err := os.Stat(path); err == nil {
		info.ModTime = st.ModTime()
	}
	return data, info, nil
}

// PublicURL returns the URL the object is served under. It does not check
// that the object exists.
func (b *FSBucket) PublicURL(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return b.baseURL + "/" + url.PathEscape(key), nil
}

// KeyFromURL returns the key of an URL produced by PublicURL.
func (b *FSBucket) KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, b.baseURL+"/")
	if !ok || ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

// List returns all objects ordered by key.
func (b *FSBucket) List(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("reading bucket: %w", err)
	}

	objects := []ObjectInfo{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || ValidateKey(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:         e.Name(),
			Size:        info.Size(),
			ContentType: b.readMeta(e.Name()).ContentType,
			ModTime:     info.ModTime(),
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// ServeHTTP serves the object named by the last path segment with its
// stored Content-Type and Cache-Control.
func (b *FSBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if ValidateKey(key) != nil {
		http.NotFound(w, r)
		return
	}
	path, err := b.path(key)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	meta := b.readMeta(key)
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if meta.CacheControl > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(meta.CacheControl))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, key, info.ModTime(), f)
}

// path resolves key inside the bucket directory.
func (b *FSBucket) path(key string) (string, error) {
	target, err := util.ChildPath(b.dir, key)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return target, nil
}

func (b *FSBucket) metaPath(key string) string {
	return filepath.Join(b.dir, metaDir, key+".json")
}

func (b *FSBucket) readMeta(key string) objectMeta {
	var meta objectMeta
	data, err := os.ReadFile(b.metaPath(key))
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(data, &meta)
	return meta
}
