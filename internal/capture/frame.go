package capture

import (
	"image"
	"time"
)

// PixelFormat tags the byte layout of a captured frame.
type PixelFormat int

const (
	// PixelFormatRGBA is 4 bytes per pixel, R G B A order, premultiplied alpha.
	PixelFormatRGBA PixelFormat = iota
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// BytesPerPixel is the stride unit for PixelFormatRGBA.
const BytesPerPixel = 4

// Frame is one raw capture of the display contents.
// It is owned by the pipeline for a single tick and must not be mutated.
type Frame struct {
	Image     *image.RGBA
	Width     int
	Height    int
	Format    PixelFormat
	Timestamp time.Time
}

// NewFrame wraps an RGBA image as a Frame stamped with the current time.
func NewFrame(img *image.RGBA) *Frame {
	b := img.Bounds()
	return &Frame{
		Image:     img,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    PixelFormatRGBA,
		Timestamp: time.Now(),
	}
}
