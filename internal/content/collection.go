// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content is the repository over the four portfolio collections.
// Every collection exposes the same List/Upsert/Remove contract; callers
// re-list after each successful mutation instead of patching local copies.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// ErrNotFound is returned when an update targets an id that does not exist.
var ErrNotFound = errors.New("record not found")

// Table is the row API of one collection.
type Table[T model.Record] interface {
	List(ctx context.Context, order store.Order) ([]T, error)
	Insert(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// Collection applies normalization, validation and error classification on
// top of a Table.
type Collection[T model.Record] struct {
	name   model.Collection
	table  Table[T]
	logger *slog.Logger
}

// NewCollection wraps a table.
func NewCollection[T model.Record](name model.Collection, table Table[T], logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{name: name, table: table, logger: logger}
}

// Name returns the collection name.
func (c *Collection[T]) Name() model.Collection {
	return c.name
}

// List returns the collection's rows, most recently created first unless
// an order is given. An empty result is not an error.
func (c *Collection[T]) List(ctx context.Context, order ...store.Order) ([]T, error) {
	o := store.DefaultOrder
	if len(order) > 0 {
		o = order[0]
	}
	rows, err := c.table.List(ctx, o)
	if err != nil {
		return nil, apperr.Fetch(c.op("list"), err)
	}
	return rows, nil
}

// Upsert normalizes and validates rec, then updates the row with rec's id or
// inserts a new row when rec has no id yet. Validation failures never reach
// the store.
func (c *Collection[T]) Upsert(ctx context.Context, rec T) (T, error) {
	var zero T

	if n, ok := any(rec).(interface{ Normalize() T }); ok {
		rec = n.Normalize()
	}
	if err := validation.Validate(rec); err != nil {
		return zero, apperr.Validation(c.op("upsert"), err)
	}

	if rec.RecordID() == "" {
		created, err := c.table.Insert(ctx, rec)
		if err != nil {
			c.logger.Warn("content insert failed", "category", model.EventCategoryContent, "collection", c.name, "error", err)
			return zero, apperr.Persistence(c.op("insert"), err)
		}
		return created, nil
	}

	n, err := c.table.Update(ctx, rec)
	if err != nil {
		c.logger.Warn("content update failed", "category", model.EventCategoryContent, "collection", c.name, "id", rec.RecordID(), "error", err)
		return zero, apperr.Persistence(c.op("update"), err)
	}
	if n == 0 {
		return zero, apperr.Persistence(c.op("update"), fmt.Errorf("%w: %s", ErrNotFound, rec.RecordID()))
	}
	return rec, nil
}

// Remove deletes the row with id. Removing a row that does not exist
// succeeds, so a repeated delete is a no-op.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	if c.name == model.CollectionSettings {
		return apperr.Validation(c.op("remove"), errors.New("settings cannot be deleted"))
	}
	n, err := c.table.Delete(ctx, id)
	if err != nil {
		c.logger.Warn("content delete failed", "category", model.EventCategoryContent, "collection", c.name, "id", id, "error", err)
		return apperr.Persistence(c.op("remove"), err)
	}
	if n == 0 {
		c.logger.Debug("delete of missing row ignored", "collection", c.name, "id", id)
	}
	return nil
}

func (c *Collection[T]) op(action string) string {
	return string(c.name) + "." + action
}
