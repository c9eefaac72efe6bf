package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenshotFacility implements Facility on top of kbinani/screenshot.
// It cannot enumerate or exclude applications, so on platforms without a
// window-list API the whole display is captured.
type ScreenshotFacility struct{}

// NewScreenshotFacility returns a portable facility.
func NewScreenshotFacility() *ScreenshotFacility {
	return &ScreenshotFacility{}
}

func (f *ScreenshotFacility) ListShareableContent(ctx context.Context, excludeCurrentAppWindows, onScreenOnly bool) (*ShareableContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := screenshot.NumActiveDisplays()
	content := &ShareableContent{}
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		if b.Empty() {
			continue
		}
		content.Displays = append(content.Displays, Display{
			ID:          uint32(i),
			Width:       b.Dx(),
			Height:      b.Dy(),
			ScaleFactor: 1,
		})
	}
	return content, nil
}

func (f *ScreenshotFacility) CaptureImage(ctx context.Context, req *CaptureRequest) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PixelFormat != PixelFormatRGBA {
		return nil, fmt.Errorf("unsupported pixel format %s", req.PixelFormat)
	}
	bounds := screenshot.GetDisplayBounds(int(req.Display.ID))
	if bounds.Empty() {
		return nil, fmt.Errorf("display %d out of range", req.Display.ID)
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, err
	}
	// CaptureRect keeps the display's global origin; rebase it to (0,0).
	if img.Rect.Min != (image.Point{}) {
		img = &image.RGBA{
			Pix:    img.Pix,
			Stride: img.Stride,
			Rect:   image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()),
		}
	}
	return NewFrame(img), nil
}
