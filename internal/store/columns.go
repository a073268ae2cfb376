// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olegiv/folio-go/internal/model"
)

// JSON columns are stored as TEXT on every dialect. Decoding is the single
// place where legacy shapes are normalized: tools may hold a JSON array, a
// JSON string or a bare comma-delimited string; media may hold null, an
// object or an array.

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTools(raw string) (model.ToolList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.ToolList{}, nil
	}
	if !json.Valid([]byte(raw)) {
		return model.ParseTools(raw), nil
	}
	var tools model.ToolList
	if err := json.Unmarshal([]byte(raw), &tools); err != nil {
		return nil, fmt.Errorf("decoding tools column: %w", err)
	}
	return tools, nil
}

func decodeMedia(raw string) (model.MediaList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.MediaList{}, nil
	}
	var media model.MediaList
	if err := json.Unmarshal([]byte(raw), &media); err != nil {
		return nil, fmt.Errorf("decoding media column: %w", err)
	}
	return media, nil
}

func decodeSocialLinks(raw string) ([]model.SocialLink, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []model.SocialLink{}, nil
	}
	var links []model.SocialLink
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, fmt.Errorf("decoding social_links column: %w", err)
	}
	if links == nil {
		links = []model.SocialLink{}
	}
	return links, nil
}
