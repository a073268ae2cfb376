// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// MediaKind tells the project viewer how to present a media entry.
type MediaKind string

// Media kinds.
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaItem is one entry of a project's media sequence.
// The JSON shape ({"type": ..., "url": ...}) matches the stored column.
type MediaItem struct {
	Kind MediaKind `json:"type"`
	URL  string    `json:"url"`
}

// Validate implements validation.Validatable.
func (m MediaItem) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Kind, validation.Required, validation.In(MediaImage, MediaVideo)),
		validation.Field(&m.URL, validation.Required),
	)
}

// MediaList is the ordered media sequence of a project.
// Decoding tolerates null, a single object or an array; anything else is an error.
type MediaList []MediaItem

// UnmarshalJSON implements json.Unmarshaler.
func (l *MediaList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*l = MediaList{}
		return nil
	case data[0] == '{':
		var item MediaItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("decoding media item: %w", err)
		}
		*l = MediaList{item.normalized()}
		return nil
	case data[0] == '[':
		var items []MediaItem
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding media list: %w", err)
		}
		out := make(MediaList, 0, len(items))
		for _, it := range items {
			out = append(out, it.normalized())
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("unsupported media encoding %q", truncate(string(data), 32))
	}
}

// MarshalJSON always writes an array, never null.
func (l MediaList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]MediaItem(l))
}

// FirstImage returns the URL of the first image entry, or "".
func (l MediaList) FirstImage() string {
	for _, m := range l {
		if m.Kind == MediaImage {
			return m.URL
		}
	}
	return ""
}

// Without returns a copy of the list with the entry at index i removed.
// Out-of-range indexes return an unchanged copy.
func (l MediaList) Without(i int) MediaList {
	out := make(MediaList, 0, len(l))
	for j, m := range l {
		if j != i {
			out = append(out, m)
		}
	}
	return out
}

func (m MediaItem) normalized() MediaItem {
	m.URL = strings.TrimSpace(m.URL)
	m.Kind = MediaKind(strings.ToLower(strings.TrimSpace(string(m.Kind))))
	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
