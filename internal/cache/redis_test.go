// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// redisURL skips the test unless FOLIO_TEST_REDIS_URL is set.
func redisURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("FOLIO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: FOLIO_TEST_REDIS_URL not set")
	}
	return url
}

func TestRedisCache(t *testing.T) {
	c, err := NewRedisCache(RedisOptions{URL: redisURL(t), Prefix: "folio-test:", DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	_ = c.Clear(ctx)

	if _, err := c.Get(ctx, "content:all"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get before Set = %v, want ErrCacheMiss", err)
	}
	if err := c.Set(ctx, "content:all", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := c.Get(ctx, "content:all"); err != nil || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if c.Stats().Items != 1 {
		t.Errorf("Items = %d, want 1", c.Stats().Items)
	}

	if err := c.DeleteByPrefix(ctx, "content:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if _, err := c.Get(ctx, "content:all"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after DeleteByPrefix = %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewRedisCache_Errors(t *testing.T) {
	if _, err := NewRedisCache(RedisOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewRedisCache(RedisOptions{URL: "://bad"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}
