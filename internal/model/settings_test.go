// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"testing"
)

func TestSocialLinkEditing(t *testing.T) {
	s := SiteSettings{ID: SettingsID}

	s = s.AddSocialLink().AddSocialLink()
	s = s.SetSocialLink(0, "GitHub", "https://github.com/x")
	s = s.SetSocialLink(1, "Mail", "mailto:x@example.com")
	s = s.SetSocialLink(5, "ignored", "")

	want := []SocialLink{{"GitHub", "https://github.com/x"}, {"Mail", "mailto:x@example.com"}}
	if !slices.Equal(s.SocialLinks, want) {
		t.Fatalf("SocialLinks = %+v, want %+v", s.SocialLinks, want)
	}

	removed := s.RemoveSocialLink(0)
	if len(removed.SocialLinks) != 1 || removed.SocialLinks[0].Name != "Mail" {
		t.Errorf("RemoveSocialLink(0) = %+v", removed.SocialLinks)
	}
	if len(s.SocialLinks) != 2 {
		t.Errorf("RemoveSocialLink modified the receiver: %+v", s.SocialLinks)
	}
}

func TestWithPhoto(t *testing.T) {
	s := SiteSettings{ProfilePhotoURL: "old"}

	p := s.WithPhoto(PhotoFieldProfile, "new")
	if p.ProfilePhotoURL != "new" || p.Photo(PhotoFieldProfile) != "new" {
		t.Errorf("profile photo = %q", p.ProfilePhotoURL)
	}
	if s.ProfilePhotoURL != "old" {
		t.Error("WithPhoto modified the receiver")
	}

	a := s.WithPhoto(PhotoFieldAbout, "about")
	if a.AboutPhotoURL != "about" || a.ProfilePhotoURL != "old" {
		t.Errorf("about photo = %+v", a)
	}
}

func TestSettingsLines(t *testing.T) {
	s := SiteSettings{IntroText: "Hello\r\nWorld\n\n", GradientTitles: " Go \n"}
	if got := s.IntroLines(); !slices.Equal(got, []string{"Hello", "World"}) {
		t.Errorf("IntroLines() = %q", got)
	}
	if got := s.GradientTitleLines(); !slices.Equal(got, []string{"Go"}) {
		t.Errorf("GradientTitleLines() = %q", got)
	}
}

func TestSettingsRecordID(t *testing.T) {
	if got := (SiteSettings{}).RecordID(); got != "" {
		t.Errorf("RecordID() of new settings = %q", got)
	}
	if got := (SiteSettings{ID: SettingsID}).RecordID(); got != "1" {
		t.Errorf("RecordID() = %q, want 1", got)
	}
}
