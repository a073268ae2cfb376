// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook notifies an external endpoint, such as a static site
// rebuild hook, when portfolio content changes.
package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/model"
)

// Event types.
const (
	EventContentChanged = "content.changed"
	EventTest           = "webhook.test"
)

// Event represents a webhook event to be dispatched.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ContentChangedData lists the collections changed since the last event.
type ContentChangedData struct {
	Collections []model.Collection `json:"collections"`
}

// TestEventData contains data for test webhook events.
type TestEventData struct {
	Message string `json:"message"`
}
