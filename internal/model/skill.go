// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Skill level bounds.
const (
	MinSkillLevel     = 0
	MaxSkillLevel     = 100
	DefaultSkillLevel = 80
)

// Skill is a named skill with a 0-100 rating.
type Skill struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID implements Record.
func (s Skill) RecordID() string { return s.ID }

// ClampLevel limits a level to [MinSkillLevel, MaxSkillLevel].
func ClampLevel(level int) int {
	return max(MinSkillLevel, min(MaxSkillLevel, level))
}

// Normalize trims the name and clamps the level.
func (s Skill) Normalize() Skill {
	s.Name = strings.TrimSpace(s.Name)
	s.Level = ClampLevel(s.Level)
	return s
}

// Validate implements validation.Validatable.
func (s Skill) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Level, validation.Min(MinSkillLevel), validation.Max(MaxSkillLevel)),
	)
}
