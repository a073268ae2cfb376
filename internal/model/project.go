// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Project is a showcase item ("karya").
type Project struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"description"`
	LongDescription  string    `json:"longDesc"`
	Tools            ToolList  `json:"tools"`
	Media            MediaList `json:"media"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecordID implements Record.
func (p Project) RecordID() string { return p.ID }

// Thumbnail returns the first image of the media sequence.
func (p Project) Thumbnail() string {
	return p.Media.FirstImage()
}

// Normalize trims text fields and re-normalizes tools and media.
func (p Project) Normalize() Project {
	p.Title = strings.TrimSpace(p.Title)
	p.ShortDescription = strings.TrimSpace(p.ShortDescription)
	p.LongDescription = strings.TrimSpace(p.LongDescription)
	p.Tools = ParseTools(strings.Join(p.Tools, ","))
	media := make(MediaList, 0, len(p.Media))
	for _, m := range p.Media {
		media = append(media, m.normalized())
	}
	p.Media = media
	return p
}

// Validate implements validation.Validatable.
func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.ShortDescription, validation.Required),
		validation.Field(&p.Media, validation.Required.Error("add at least one image or video")),
	)
}

// ToolList is the ordered tool sequence of a project.
//
// Rows written by older clients store tools as a single comma-delimited
// string; UnmarshalJSON accepts both that form and a JSON array and always
// yields trimmed, non-empty tokens.
type ToolList []string

// ParseTools splits a comma-delimited string into trimmed non-empty tokens.
func ParseTools(s string) ToolList {
	out := ToolList{}
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// String joins the tools the way the edit form displays them.
func (t ToolList) String() string {
	return strings.Join(t, ", ")
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *ToolList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*t = ToolList{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding tools string: %w", err)
		}
		*t = ParseTools(s)
		return nil
	case data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding tools array: %w", err)
		}
		*t = ParseTools(strings.Join(items, ","))
		return nil
	default:
		return fmt.Errorf("unsupported tools encoding %q", truncate(string(data), 32))
	}
}

// MarshalJSON always writes an array, never null.
func (t ToolList) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}
