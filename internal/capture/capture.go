// Package capture abstracts grabbing single frames of the screen or a
// rectangular sub-region of it.
package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

var (
	// ErrUnavailable is returned when no display can be captured.
	ErrUnavailable = errors.New("screen capture unavailable")
	// ErrInvalidRegion is returned when a requested region does not fit
	// within the screen bounds.
	ErrInvalidRegion = errors.New("capture region out of screen bounds")
)

// Source grabs one frame per call. Grab is the only long-running operation
// and is never called concurrently; the recording loop owns the Source.
type Source interface {
	Grab() (*image.RGBA, error)
	Bounds() image.Rectangle
	Close() error
}

// Opener opens a Source. A nil region selects the full primary display.
type Opener func(region *image.Rectangle) (Source, error)

// ScreenBounds returns the pixel bounds of the primary display.
func ScreenBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, ErrUnavailable
	}
	return screenshot.GetDisplayBounds(0), nil
}

type screenSource struct {
	bounds image.Rectangle
}

// Open returns a Source for the primary display, restricted to region when
// one is given. The region is validated against the screen bounds once, and
// a probe grab is performed so that an inaccessible display surfaces here
// instead of mid-recording.
func Open(region *image.Rectangle) (Source, error) {
	full, err := ScreenBounds()
	if err != nil {
		return nil, err
	}

	bounds := full
	if region != nil {
		if !region.In(full) {
			return nil, fmt.Errorf("%w: region %v, screen %v", ErrInvalidRegion, *region, full)
		}
		bounds = *region
	}

	src := &screenSource{bounds: bounds}
	if _, err := src.Grab(); err != nil {
		return nil, fmt.Errorf("%w: probe grab failed: %v", ErrUnavailable, err)
	}
	return src, nil
}

func (s *screenSource) Grab() (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture rect %v: %w", s.bounds, err)
	}
	return img, nil
}

func (s *screenSource) Bounds() image.Rectangle {
	return s.bounds
}

func (s *screenSource) Close() error {
	return nil
}
