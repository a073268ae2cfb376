// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestMediaListUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MediaList
		wantErr bool
	}{
		{"null", `null`, MediaList{}, false},
		{"single object", `{"type":"image","url":"a.jpeg"}`, MediaList{{MediaImage, "a.jpeg"}}, false},
		{"array", `[{"type":"video","url":"v"},{"type":" Image ","url":"b.jpeg"}]`, MediaList{{MediaVideo, "v"}, {MediaImage, "b.jpeg"}}, false},
		{"missing type kept empty", `[{"url":"b.jpeg"}]`, MediaList{{"", "b.jpeg"}}, false},
		{"string", `"a.jpeg"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got MediaList
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !slices.Equal(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMediaListFirstImage(t *testing.T) {
	l := MediaList{{MediaVideo, "v"}, {MediaImage, "a"}, {MediaImage, "b"}}
	if got := l.FirstImage(); got != "a" {
		t.Errorf("FirstImage() = %q, want a", got)
	}
	if got := (Project{Media: l[:1]}).Thumbnail(); got != "" {
		t.Errorf("Thumbnail() without images = %q", got)
	}
}

func TestMediaListWithout(t *testing.T) {
	l := MediaList{{MediaImage, "a"}, {MediaImage, "b"}, {MediaImage, "c"}}

	got := l.Without(1)
	if want := (MediaList{{MediaImage, "a"}, {MediaImage, "c"}}); !slices.Equal(got, want) {
		t.Errorf("Without(1) = %+v, want %+v", got, want)
	}
	if len(l) != 3 || l[1].URL != "b" {
		t.Errorf("Without modified the receiver: %+v", l)
	}
	if got := l.Without(7); !slices.Equal(got, l) {
		t.Errorf("Without(7) = %+v", got)
	}
}
