// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Backend names reported by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and sizes the cache backend.
type Config struct {
	// RedisURL selects Redis when set.
	RedisURL string
	// Prefix namespaces Redis keys.
	Prefix string
	// DefaultTTL applies to entries stored without a TTL.
	DefaultTTL time.Duration
	// MaxSize bounds the memory cache; 0 is unlimited.
	MaxSize int
}

// New creates the configured cache. If Redis is configured but unreachable
// the memory cache is used instead. The second result names the backend.
func New(cfg Config, logger *slog.Logger) (Cache, string) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			logger.Info("using redis cache", "prefix", cfg.Prefix)
			return rc, BackendRedis
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err)
	}
	return NewMemoryCache(cfg.DefaultTTL, cfg.MaxSize), BackendMemory
}
