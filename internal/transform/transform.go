// Package transform implements the pure per-frame transform applied between
// capture and encode: an optional region crop followed by optional
// normalization to the fixed vertical shorts canvas.
package transform

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/rmeijer/screenrec/internal/constants"
	xdraw "golang.org/x/image/draw"
)

// background fills the unused canvas area in shorts format.
var background = color.RGBA{0, 0, 0, 255}

// Transform converts raw captured frames into frames to encode. All geometry
// is computed once at construction; Apply carries no state and is safe to
// call from the capture loop without synchronization.
type Transform struct {
	crop    image.Rectangle // source-coordinate crop, == source bounds when no region
	hasCrop bool
	shorts  bool
	out     image.Rectangle // output frame bounds
	placed  image.Rectangle // where the scaled frame lands on the shorts canvas
}

// New builds a Transform for frames delivered with the given source bounds.
// A non-nil region must fit within source; violations are rejected here,
// once, rather than per frame.
func New(source image.Rectangle, region *image.Rectangle, shorts bool) (*Transform, error) {
	crop := source
	if region != nil {
		if !region.In(source) {
			return nil, fmt.Errorf("region %v exceeds source bounds %v", *region, source)
		}
		crop = *region
	}

	t := &Transform{
		crop:    crop,
		hasCrop: crop != source,
		shorts:  shorts,
	}

	if !shorts {
		t.out = image.Rect(0, 0, crop.Dx(), crop.Dy())
		return t, nil
	}

	t.out = image.Rect(0, 0, constants.ShortsWidth, constants.ShortsHeight)
	t.placed = fitRect(crop.Dx(), crop.Dy(), constants.ShortsWidth, constants.ShortsHeight)
	return t, nil
}

// fitRect scales w x h to fit within tw x th preserving aspect ratio and
// centers the result, yielding letterbox or pillarbox padding.
func fitRect(w, h, tw, th int) image.Rectangle {
	nw, nh := tw, h*tw/w
	if nh > th {
		nw, nh = w*th/h, th
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	x := (tw - nw) / 2
	y := (th - nh) / 2
	return image.Rect(x, y, x+nw, y+nh)
}

// OutputSize returns the fixed dimensions of every frame Apply produces.
func (t *Transform) OutputSize() (width, height int) {
	return t.out.Dx(), t.out.Dy()
}

// Apply produces the frame to encode. The input frame is never modified.
func (t *Transform) Apply(frame *image.RGBA) *image.RGBA {
	src := frame
	if t.hasCrop {
		cropped := image.NewRGBA(image.Rect(0, 0, t.crop.Dx(), t.crop.Dy()))
		draw.Draw(cropped, cropped.Bounds(), frame, t.crop.Min, draw.Src)
		src = cropped
	}

	if !t.shorts {
		return src
	}

	canvas := image.NewRGBA(t.out)
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	xdraw.ApproxBiLinear.Scale(canvas, t.placed, src, src.Bounds(), xdraw.Src, nil)
	return canvas
}
