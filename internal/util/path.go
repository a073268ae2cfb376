// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEscapesDir is returned when a name does not resolve to a direct child
// of its directory.
var ErrEscapesDir = errors.New("name escapes directory")

// ChildPath returns the path of name directly inside dir. The name must be a
// single local path element: no separators, no "." or "..", no volume.
func ChildPath(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrEscapesDir, name)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}
	target := filepath.Join(base, name)
	if filepath.Dir(target) != base {
		return "", fmt.Errorf("%w: %q", ErrEscapesDir, name)
	}
	return target, nil
}
