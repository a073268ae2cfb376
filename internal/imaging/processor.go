// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging decodes admin uploads, renders crop regions and encodes
// the results using pure Go libraries.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/folio-go/internal/model"
)

// JPEGQuality is the quality used for cropped output.
const JPEGQuality = 95

// ErrUnsupportedFormat is returned for data that is not a JPEG, PNG, GIF or WebP image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrEmptyImage is returned when asked to encode an image with no pixels.
var ErrEmptyImage = errors.New("image has zero area")

// MaxPixels limits the declared width x height of decoded images.
const MaxPixels = 50_000_000

// ErrTooLarge is returned for images whose header declares more than
// MaxPixels pixels.
var ErrTooLarge = errors.New("image dimensions too large")

// Source is a decoded image together with the bytes it was read from.
type Source struct {
	Image    image.Image
	Format   string
	MimeType string
	Data     []byte
}

// Width returns the natural width after EXIF orientation.
func (s *Source) Width() int { return s.Image.Bounds().Dx() }

// Height returns the natural height after EXIF orientation.
func (s *Source) Height() int { return s.Image.Bounds().Dy() }

// DataURL returns the original bytes as a data: URL for previews.
func (s *Source) DataURL() string {
	return "data:" + s.MimeType + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

// Decode reads an image, applying its EXIF orientation.
func Decode(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", ErrUnsupportedFormat)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	orientation := readExifOrientation(bytes.NewReader(data))
	img = applyOrientation(img, orientation)

	return &Source{
		Image:    img,
		Format:   format,
		MimeType: formatToMimeType(format),
		Data:     data,
	}, nil
}

// Render copies the src region r of img onto a black canvas of exactly
// width x height pixels. Parts of r outside the image stay black.
func Render(img image.Image, r image.Rectangle, width, height int) image.Image {
	canvas := imaging.New(width, height, color.Black)
	if width <= 0 || height <= 0 {
		return canvas
	}

	b := img.Bounds()
	visible := r.Add(b.Min).Intersect(b)
	if visible.Empty() {
		return canvas
	}

	region := imaging.Crop(img, visible)
	offset := visible.Min.Sub(b.Min).Sub(r.Min)
	return imaging.Paste(canvas, region, offset)
}

// EncodeJPEG serializes img as a JPEG. Images with no pixels are rejected.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return encodeImage(img, "jpeg", quality)
}

// Processor prepares uncropped uploads for storage.
type Processor struct {
	// MaxDimension limits the longer side of stored images; 0 disables resizing.
	MaxDimension int
}

// NewProcessor creates a processor that fits images into maxDimension pixels.
func NewProcessor(maxDimension int) *Processor {
	return &Processor{MaxDimension: maxDimension}
}

// Prepare decodes data, applies EXIF orientation, downsizes it if needed and
// re-encodes it in its own format, which also strips metadata.
func (p *Processor) Prepare(data []byte) (out []byte, mimeType string, err error) {
	src, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	img := src.Image
	if p.MaxDimension > 0 && (src.Width() > p.MaxDimension || src.Height() > p.MaxDimension) {
		img = imaging.Fit(img, p.MaxDimension, p.MaxDimension, imaging.Lanczos)
	}

	out, err = encodeImage(img, src.Format, JPEGQuality)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	if src.Format == "webp" {
		return out, model.MimeTypeJPEG, nil
	}
	return out, src.MimeType, nil
}

// IsImage checks if a MIME type represents an image that can be processed.
func IsImage(mimeType string) bool {
	switch mimeType {
	case model.MimeTypeJPEG, model.MimeTypePNG, model.MimeTypeGIF, model.MimeTypeWebP:
		return true
	default:
		return false
	}
}

// DetectMimeType detects the MIME type of image data.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	// http.DetectContentType returns types like "image/jpeg; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// Extension returns the file extension used for a MIME type.
func Extension(mimeType string) string {
	switch mimeType {
	case model.MimeTypePNG:
		return ".png"
	case model.MimeTypeGIF:
		return ".gif"
	default:
		return ".jpeg"
	}
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies an EXIF orientation (1-8) to an image.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		// WebP has no pure Go encoder, so it is written as JPEG too.
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

func formatToMimeType(format string) string {
	switch format {
	case "jpeg":
		return model.MimeTypeJPEG
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	case "webp":
		return model.MimeTypeWebP
	default:
		return "application/octet-stream"
	}
}
