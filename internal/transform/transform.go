// Package transform turns raw display captures into small, comparable frames.
package transform

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/junsooki/Backdrop/internal/capture"
	"github.com/junsooki/Backdrop/internal/decoder"
	"github.com/junsooki/Backdrop/internal/encoder"
)

const (
	// DefaultTopMargin is the band cropped off the top of every capture
	// to drop the menu bar and anything drawn over it.
	DefaultTopMargin = 60

	// DefaultMaxPixelSize bounds the longest side of a normalized frame.
	DefaultMaxPixelSize = 64
)

// ErrFrameTooSmall is returned when a capture is not taller than the top margin.
var ErrFrameTooSmall = errors.New("transform: frame too small to crop")

// Transformer crops and downsamples raw frames.
type Transformer struct {
	TopMargin    int
	MaxPixelSize int

	enc encoder.Encoder
	dec decoder.Decoder
}

// New returns a Transformer with the default margin and size that round-trips
// crops through PNG before scaling.
func New() *Transformer {
	return &Transformer{
		TopMargin:    DefaultTopMargin,
		MaxPixelSize: DefaultMaxPixelSize,
		enc:          encoder.NewPNGEncoder(png.BestSpeed),
		dec:          decoder.NewPNGDecoder(),
	}
}

// Transform crops the top margin off frame and scales the rest so its
// longest side is at most MaxPixelSize. The result is always derived from
// the full resolution crop.
func (t *Transformer) Transform(frame *capture.Frame) (*image.RGBA, error) {
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("transform: nil frame")
	}

	cropped, err := Crop(frame.Image, t.TopMargin)
	if err != nil {
		return nil, err
	}

	data, err := t.enc.Encode(cropped)
	if err != nil {
		return nil, fmt.Errorf("transform: encode crop: %w", err)
	}
	full, err := t.dec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("transform: decode crop: %w", err)
	}

	b := full.Bounds()
	w, h := ThumbnailSize(b.Dx(), b.Dy(), t.MaxPixelSize)
	if w == b.Dx() && h == b.Dy() {
		return full, nil
	}
	return Scale(full, w, h), nil
}

// Crop removes margin rows from the top of img and returns a copy of the
// remainder anchored at (0,0).
func Crop(img *image.RGBA, margin int) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Dy() <= margin || b.Dx() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with margin %d", ErrFrameTooSmall, b.Dx(), b.Dy(), margin)
	}

	w, h := b.Dx(), b.Dy()-margin
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	rowBytes := w * capture.BytesPerPixel
	for y := 0; y < h; y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+margin+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rowBytes], img.Pix[src:src+rowBytes])
	}
	return out, nil
}

// ThumbnailSize returns the dimensions of a w×h image scaled so its longest
// side is at most max, preserving aspect ratio. Images already within max
// are not enlarged. A non-positive max disables scaling.
func ThumbnailSize(w, h, max int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		return max, scaledSide(h, max, w)
	}
	return scaledSide(w, max, h), max
}

func scaledSide(side, max, longest int) int {
	v := int(math.Round(float64(side) * float64(max) / float64(longest)))
	if v < 1 {
		v = 1
	}
	return v
}

// Scale resamples src into a new w×h image.
func Scale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
