// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Experience is a work experience entry.
type Experience struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	YearStart   string    `json:"year_start"`
	YearEnd     string    `json:"year_end"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordID implements Record.
func (e Experience) RecordID() string { return e.ID }

// Normalize trims surrounding whitespace from every text field.
func (e Experience) Normalize() Experience {
	e.Title = strings.TrimSpace(e.Title)
	e.Company = strings.TrimSpace(e.Company)
	e.YearStart = strings.TrimSpace(e.YearStart)
	e.YearEnd = strings.TrimSpace(e.YearEnd)
	e.Description = strings.TrimSpace(e.Description)
	return e
}

// Validate implements validation.Validatable.
func (e Experience) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.Required),
		validation.Field(&e.Company, validation.Required),
		validation.Field(&e.YearStart, validation.Required),
		validation.Field(&e.YearEnd, validation.Required),
		validation.Field(&e.Description, validation.Required),
	)
}
