// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Typed stores values of T as JSON in a Cache.
type Typed[T any] struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewTyped wraps c. ttl is used for every Set.
func NewTyped[T any](c Cache, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, ttl: ttl}
}

// Get returns the value of key. ok is false on a miss or an undecodable
// entry.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := t.cache.Get(ctx, key)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Debug("dropping undecodable cache entry", "key", key, "error", err)
		_ = t.cache.Delete(ctx, key)
		return v, false
	}
	return v, true
}

// Set stores v under key.
func (t *Typed[T]) Set(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, key, data, t.ttl)
}

// GetOrLoad returns the cached value of key, calling load on a miss.
// Concurrent misses of the same key share one load. Load errors are not
// cached; failures to store the loaded value are ignored.
func (t *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	res, err, _ := t.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if err := t.Set(ctx, key, v); err != nil && !errors.Is(err, ErrCacheClosed) {
			slog.Warn("failed to cache value", "key", key, "error", err)
		}
		return v, nil
	})
	v, _ := res.(T)
	return v, err
}

// Delete removes key.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.cache.Delete(ctx, key)
}
