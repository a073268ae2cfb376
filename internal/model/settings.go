// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strconv"
	"strings"
)

// SettingsID is the stable id of the singleton settings row.
const SettingsID int64 = 1

// SocialLink is one entry of the ordered social link list.
type SocialLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SiteSettings is the singleton site configuration row.
type SiteSettings struct {
	ID                 int64        `json:"id"`
	IntroText          string       `json:"intro_text"`
	GradientTitles     string       `json:"gradient_titles"`
	ProfileDescription string       `json:"profile_description"`
	ProfilePhotoURL    string       `json:"profile_photo_url"`
	AboutDescription   string       `json:"about_description"`
	AboutPhotoURL      string       `json:"about_photo_url"`
	CVURL              string       `json:"cv_url"`
	SocialLinks        []SocialLink `json:"social_links"`
}

// RecordID implements Record.
func (s SiteSettings) RecordID() string {
	if s.ID == 0 {
		return ""
	}
	return strconv.FormatInt(s.ID, 10)
}

// Clone returns a deep copy so drafts never alias the snapshot's link slice.
func (s SiteSettings) Clone() SiteSettings {
	out := s
	out.SocialLinks = append([]SocialLink{}, s.SocialLinks...)
	return out
}

// IntroLines splits the multi-line intro text into non-empty lines.
func (s SiteSettings) IntroLines() []string {
	return splitLines(s.IntroText)
}

// GradientTitleLines splits the gradient titles into non-empty lines.
func (s SiteSettings) GradientTitleLines() []string {
	return splitLines(s.GradientTitles)
}

// AddSocialLink appends an empty link.
func (s SiteSettings) AddSocialLink() SiteSettings {
	out := s.Clone()
	out.SocialLinks = append(out.SocialLinks, SocialLink{})
	return out
}

// SetSocialLink replaces the link at index i. Out-of-range indexes are ignored.
func (s SiteSettings) SetSocialLink(i int, name, url string) SiteSettings {
	out := s.Clone()
	if i >= 0 && i < len(out.SocialLinks) {
		out.SocialLinks[i] = SocialLink{Name: name, URL: url}
	}
	return out
}

// RemoveSocialLink drops the link at index i, keeping the order of the rest.
func (s SiteSettings) RemoveSocialLink(i int) SiteSettings {
	out := s.Clone()
	if i < 0 || i >= len(out.SocialLinks) {
		return out
	}
	out.SocialLinks = append(out.SocialLinks[:i], out.SocialLinks[i+1:]...)
	return out
}

// PhotoField names a photo URL column of SiteSettings.
type PhotoField string

// Photo fields written by the upload coordinator.
const (
	PhotoFieldProfile PhotoField = "profile_photo_url"
	PhotoFieldAbout   PhotoField = "about_photo_url"
)

// WithPhoto returns a copy with the given photo field set to url.
func (s SiteSettings) WithPhoto(field PhotoField, url string) SiteSettings {
	out := s.Clone()
	switch field {
	case PhotoFieldProfile:
		out.ProfilePhotoURL = url
	case PhotoFieldAbout:
		out.AboutPhotoURL = url
	}
	return out
}

// Photo returns the current value of a photo field.
func (s SiteSettings) Photo(field PhotoField) string {
	switch field {
	case PhotoFieldProfile:
		return s.ProfilePhotoURL
	case PhotoFieldAbout:
		return s.AboutPhotoURL
	default:
		return ""
	}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
