// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package crop implements the image crop session: a state machine that takes
// one selected file through preview and rectangle adjustment to an encoded
// JPEG blob.
package crop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/olegiv/folio-go/internal/apperr"
	"github.com/olegiv/folio-go/internal/imaging"
	"github.com/olegiv/folio-go/internal/model"
)

// State is the lifecycle position of a Session.
type State int

// Session states. Committed and Cancelled are terminal.
const (
	StateIdle State = iota
	StateFileSelected
	StatePreviewing
	StateRectangleAdjusted
	StateEncoding
	StateCommitted
	StateCancelled
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateFileSelected:      "file_selected",
	StatePreviewing:        "previewing",
	StateRectangleAdjusted: "rectangle_adjusted",
	StateEncoding:          "encoding",
	StateCommitted:         "committed",
	StateCancelled:         "cancelled",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

// ErrInvalidTransition is returned when an operation is not allowed in the
// session's current state.
var ErrInvalidTransition = errors.New("invalid crop session transition")

// ErrReleased is returned by Commit when the session was cancelled or
// released while the image was being encoded.
var ErrReleased = errors.New("crop session released")

// InitialCoverage is the share of the largest fitting rectangle used for the
// initial crop frame.
const InitialCoverage = 0.9

// Size is a width/height pair in display or source pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a crop rectangle in display coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Output is the encoded result of a committed session.
type Output struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Session is a single crop session. It is safe for concurrent use; late
// results of a session that was cancelled mid-encode are discarded.
type Session struct {
	mu       sync.Mutex
	state    State
	source   *imaging.Source
	dest     model.Destination
	aspect   float64
	circular bool
	display  Size
	rect     Rect
	quality  int
}

// New returns an idle session.
func New() *Session {
	return &Session{quality: imaging.JPEGQuality}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select reads and decodes the chosen file. An unreadable file leaves the
// session idle and returns a decode error.
func (s *Session) Select(ctx context.Context, r io.Reader) error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, st)
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := imaging.Decode(r)
	if err != nil {
		return apperr.Decode("crop.select", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, s.state)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.source = src
	s.state = StateFileSelected
	return nil
}

// SourceDataURL returns the selected file as a data URL, or "" before a file
// was selected or after the session was released.
func (s *Session) SourceDataURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ""
	}
	return s.source.DataURL()
}

// Natural returns the natural size of the selected image.
func (s *Session) Natural() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.naturalLocked()
}

func (s *Session) naturalLocked() Size {
	if s.source == nil {
		return Size{}
	}
	return Size{Width: float64(s.source.Width()), Height: float64(s.source.Height())}
}

// Preview fixes the frame for the destination. A zero display size means the
// image is shown at its natural size.
func (s *Session) Preview(dest model.Destination, display Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFileSelected {
		return fmt.Errorf("%w: preview from %s", ErrInvalidTransition, s.state)
	}
	if display.Width <= 0 || display.Height <= 0 {
		display = s.naturalLocked()
	}
	s.dest = dest
	s.aspect = dest.AspectRatio()
	s.circular = dest.Circular()
	s.display = display
	s.state = StatePreviewing
	return nil
}

// Place computes the initial crop rectangle and returns it.
func (s *Session) Place() (Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePreviewing {
		return Rect{}, fmt.Errorf("%w: place from %s", ErrInvalidTransition, s.state)
	}
	s.rect = InitialRect(s.display, s.aspect)
	s.state = StateRectangleAdjusted
	return s.rect, nil
}

// Adjust replaces the pending rectangle. The height follows the width at
// the destination's aspect ratio and the rectangle is shrunk and moved to
// lie inside the displayed image; View reports the stored result. A
// rectangle without a positive finite size is rejected.
func (s *Session) Adjust(r Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRectangleAdjusted {
		return fmt.Errorf("%w: adjust from %s", ErrInvalidTransition, s.state)
	}
	fitted, err := FitRect(r, s.display, s.aspect)
	if err != nil {
		return apperr.Validation("crop.adjust", err)
	}
	s.rect = fitted
	return nil
}

// Commit renders the pending rectangle at source resolution and encodes it
// as JPEG. On failure the session returns to RectangleAdjusted.
func (s *Session) Commit(ctx context.Context) (Output, error) {
	s.mu.Lock()
	if s.state != StateRectangleAdjusted {
		st := s.state
		s.mu.Unlock()
		return Output{}, fmt.Errorf("%w: commit from %s", ErrInvalidTransition, st)
	}
	src := s.source
	region := SourceRect(s.rect, s.display, s.naturalLocked())
	quality := s.quality
	s.state = StateEncoding
	s.mu.Unlock()

	out, err := encodeRegion(ctx, src.Image, region, quality)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEncoding {
		return Output{}, ErrReleased
	}
	if err != nil {
		s.state = StateRectangleAdjusted
		return Output{}, err
	}
	s.state = StateCommitted
	s.source = nil
	return out, nil
}

// encodeRegion is replaced in tests to hold a session in Encoding.
var encodeRegion = encode

func encode(ctx context.Context, img image.Image, region image.Rectangle, quality int) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, apperr.Encode("crop.commit", err)
	}
	w, h := region.Dx(), region.Dy()
	if w <= 0 || h <= 0 {
		return Output{}, apperr.Encode("crop.commit", imaging.ErrEmptyImage)
	}
	data, err := imaging.EncodeJPEG(imaging.Render(img, region, w, h), quality)
	if err != nil {
		return Output{}, apperr.Encode("crop.commit", err)
	}
	if len(data) == 0 {
		return Output{}, apperr.Encode("crop.commit", errors.New("encoder produced no data"))
	}
	return Output{Data: data, MimeType: model.MimeTypeJPEG, Width: w, Height: h}, nil
}

// Cancel discards the session. It is allowed from every non-terminal state.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateCancelled
	s.source = nil
	return nil
}

// Release drops the decoded image. A session that has not reached a
// terminal state is cancelled.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = StateCancelled
	}
	s.source = nil
}

// View is a read-only description of a session for clients.
type View struct {
	State       State             `json:"state"`
	Destination model.Destination `json:"destination,omitempty"`
	AspectRatio float64           `json:"aspect_ratio,omitempty"`
	Circular    bool              `json:"circular"`
	Natural     Size              `json:"natural"`
	Display     Size              `json:"display"`
	Rect        Rect              `json:"rect"`
}

// View returns the current session description.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:       s.state,
		Destination: s.dest,
		AspectRatio: s.aspect,
		Circular:    s.circular,
		Natural:     s.naturalLocked(),
		Display:     s.display,
		Rect:        s.rect,
	}
}

// Destination returns where the output will be written.
func (s *Session) Destination() model.Destination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dest
}

// InitialRect returns the largest rectangle with the given width/height
// ratio that fits display, scaled by InitialCoverage and centered.
func InitialRect(display Size, aspect float64) Rect {
	if display.Width <= 0 || display.Height <= 0 || aspect <= 0 {
		return Rect{}
	}
	w, h := display.Width, display.Width/aspect
	if h > display.Height {
		w, h = display.Height*aspect, display.Height
	}
	w *= InitialCoverage
	h *= InitialCoverage
	return Rect{
		X:      (display.Width - w) / 2,
		Y:      (display.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

// FitRect locks r to aspect (width/height, ignored when not positive) and
// keeps it inside display, shrinking it if it is larger.
func FitRect(r Rect, display Size, aspect float64) (Rect, error) {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Rect{}, errors.New("rectangle has a non-finite coordinate")
		}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return Rect{}, errors.New("rectangle must have a positive width and height")
	}

	if aspect > 0 {
		r.Height = r.Width / aspect
	}
	if r.Width > display.Width {
		r.Width = display.Width
		if aspect > 0 {
			r.Height = r.Width / aspect
		}
	}
	if r.Height > display.Height {
		r.Height = display.Height
		if aspect > 0 {
			r.Width = r.Height * aspect
		}
	}
	r.X = math.Max(0, math.Min(r.X, display.Width-r.Width))
	r.Y = math.Max(0, math.Min(r.Y, display.Height-r.Height))
	return r, nil
}

// SourceRect maps a display rectangle to source pixels using
// scale = natural / displayed on each axis.
func SourceRect(r Rect, display, natural Size) image.Rectangle {
	if display.Width <= 0 || display.Height <= 0 {
		return image.Rectangle{}
	}
	sx := natural.Width / display.Width
	sy := natural.Height / display.Height
	x0 := int(math.Round(r.X * sx))
	y0 := int(math.Round(r.Y * sy))
	w := int(math.Round(r.Width * sx))
	h := int(math.Round(r.Height * sy))
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	bounds := image.Rect(0, 0, int(math.Round(natural.Width)), int(math.Round(natural.Height)))
	return image.Rect(x0, y0, x0+w, y0+h).Intersect(bounds)
}
