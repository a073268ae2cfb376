// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage is the object store for uploaded images. Keys are flat
// names; every object has a public URL derived from the key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrObjectExists is returned when Upsert is false and the key is taken.
var ErrObjectExists = errors.New("object already exists")

// ErrInvalidKey is returned for keys that are not a single safe path segment.
var ErrInvalidKey = errors.New("invalid object key")

// UploadOptions controls how an object is written.
type UploadOptions struct {
	// CacheControl is the max-age in seconds sent when the object is served.
	CacheControl int
	// Upsert allows replacing an existing object.
	Upsert bool
	// ContentType is stored and sent when the object is served.
	ContentType string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ModTime     time.Time `json:"mod_time"`
}

// Bucket is an object store.
type Bucket interface {
	Upload(ctx context.Context, key string, data []byte, opts UploadOptions) error
	PublicURL(key string) (string, error)
	List(ctx context.Context) ([]ObjectInfo, error)
}

const maxKeyLength = 200

// ValidateKey checks that key is a flat object name made of letters, digits,
// '.', '-' and '_' that does not start with a dot.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLength || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
