// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// Collection names one of the four content tables.
type Collection string

// Content collections.
const (
	CollectionSettings    Collection = "settings"
	CollectionExperiences Collection = "experiences"
	CollectionProjects    Collection = "projects"
	CollectionSkills      Collection = "skills"
)

// Collections lists every collection in snapshot load order.
var Collections = []Collection{
	CollectionSettings,
	CollectionExperiences,
	CollectionProjects,
	CollectionSkills,
}

// tables maps collections to their table names.
var tables = map[Collection]string{
	CollectionSettings:    "site_settings",
	CollectionExperiences: "experience",
	CollectionProjects:    "karya",
	CollectionSkills:      "skills",
}

// Table returns the table backing the collection.
func (c Collection) Table() string {
	return tables[c]
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	_, ok := tables[c]
	return ok
}

// ParseCollection parses a collection name. The original table names
// ("experience", "karya", "site_settings") are accepted as aliases.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if c.Valid() {
		return c, nil
	}
	for coll, table := range tables {
		if table == s {
			return coll, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Record is implemented by every persisted content row.
type Record interface {
	// RecordID returns the row id, or "" for a record that has not been stored yet.
	RecordID() string
}

// TimestampLayout is the fixed-width layout used for created_at columns so that
// lexical order equals chronological order on every backend.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t in TimestampLayout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
