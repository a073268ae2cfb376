// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version carries build metadata injected via ldflags.
package version

import "fmt"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`              // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string `json:"commit,omitempty"`     // Short git commit hash
	BuildTime string `json:"build_time,omitempty"` // RFC3339 build timestamp
}

// String renders the build as "v1.2.3 (abc1234, 2026-01-30T12:00:00Z)",
// leaving out unknown parts.
func (i Info) String() string {
	v := i.Version
	if v == "" {
		v = "dev"
	}
	switch {
	case i.GitCommit != "" && i.BuildTime != "":
		return fmt.Sprintf("%s (%s, %s)", v, i.GitCommit, i.BuildTime)
	case i.GitCommit != "":
		return fmt.Sprintf("%s (%s)", v, i.GitCommit)
	default:
		return v
	}
}
