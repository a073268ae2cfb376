// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the byte cache behind the public content API: an
// in-memory implementation, a Redis implementation and a typed JSON layer.
package cache

import (
	"context"
	"time"
)

// Cache is a byte cache. Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the value of key or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl uses the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
	// Clear removes all entries.
	Clear(ctx context.Context) error
	// Stats returns hit and miss counters.
	Stats() Stats
	// Close releases the backend.
	Close() error
}

// Stats are cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

func newStats(hits, misses, sets int64, items int) Stats {
	s := Stats{Hits: hits, Misses: misses, Sets: sets, Items: items}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total) * 100
	}
	return s
}

// Error is a cache error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss means the key is absent or expired.
	ErrCacheMiss Error = "cache miss"
	// ErrCacheClosed means the cache was closed.
	ErrCacheClosed Error = "cache closed"
)
