// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "fmt"

// Destination names where the output of a crop session is written.
type Destination string

// Crop destinations.
const (
	DestinationProfile Destination = "profile"
	DestinationAbout   Destination = "about"
	DestinationProject Destination = "project"
)

// ParseDestination validates a destination name.
func ParseDestination(s string) (Destination, error) {
	switch d := Destination(s); d {
	case DestinationProfile, DestinationAbout, DestinationProject:
		return d, nil
	default:
		return "", fmt.Errorf("unknown crop destination %q", s)
	}
}

// AspectRatio returns width/height of the crop frame for the destination.
func (d Destination) AspectRatio() float64 {
	if d == DestinationProfile {
		return 1
	}
	return 3.0 / 4.0
}

// Circular reports whether the crop frame is shown with a circular mask.
func (d Destination) Circular() bool {
	return d == DestinationProfile
}

// PhotoField returns the settings column written for the destination.
// ok is false for destinations that do not write settings.
func (d Destination) PhotoField() (field PhotoField, ok bool) {
	switch d {
	case DestinationProfile:
		return PhotoFieldProfile, true
	case DestinationAbout:
		return PhotoFieldAbout, true
	default:
		return "", false
	}
}
