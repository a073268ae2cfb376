// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package markup

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	r := New()

	tests := []struct {
		name    string
		src     string
		want    []string
		notWant []string
	}{
		{
			name: "emphasis and lists",
			src:  "Built with **Go**.\n\n- chi\n- sqlite",
			want: []string{"<strong>Go</strong>", "<li>chi</li>"},
		},
		{
			name: "hard wraps",
			src:  "Hello\nWorld",
			want: []string{"Hello<br"},
		},
		{
			name:    "script removed",
			src:     "hi <script>alert(1)</script>",
			notWant: []string{"<script", "alert(1)</script>"},
		},
		{
			name:    "javascript link removed",
			src:     "[x](javascript:alert(1))",
			notWant: []string{"javascript:"},
		},
		{
			name: "external links are nofollow",
			src:  "see https://example.com",
			want: []string{`href="https://example.com"`, "nofollow", `target="_blank"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Markdown(tt.src)
			if err != nil {
				t.Fatalf("Markdown: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(got), w) {
					t.Errorf("output %q missing %q", got, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(string(got), nw) {
					t.Errorf("output %q contains %q", got, nw)
				}
			}
		})
	}
}

func TestMarkdownEmpty(t *testing.T) {
	got, err := New().Markdown("  \n ")
	if err != nil || got != "" {
		t.Errorf("Markdown(blank) = %q, %v", got, err)
	}
}

func TestSanitizeAndPlainText(t *testing.T) {
	r := New()
	if got := r.Sanitize(`<p onclick="x()">ok</p>`); string(got) != "<p>ok</p>" {
		t.Errorf("Sanitize = %q", got)
	}
	if got := PlainText(" <b>Hi</b> there "); got != "Hi there" {
		t.Errorf("PlainText = %q", got)
	}
}
