package capture

import (
	"context"
	"time"
)

// Display describes a capturable display. Width and Height are logical
// points; multiply by ScaleFactor for backing pixels.
type Display struct {
	ID          uint32
	Width       int
	Height      int
	ScaleFactor float64
}

// PixelWidth returns the backing pixel width of the display.
func (d Display) PixelWidth() int {
	return int(float64(d.Width) * d.ScaleFactor)
}

// PixelHeight returns the backing pixel height of the display.
func (d Display) PixelHeight() int {
	return int(float64(d.Height) * d.ScaleFactor)
}

// Application is a running application that owns on-screen windows.
// Facilities fill whichever identifiers the platform exposes.
type Application struct {
	BundleID string
	Name     string
	PID      int
}

// ShareableContent is what a Facility reports as available for capture.
type ShareableContent struct {
	Displays     []Display
	Applications []Application
}

// CaptureRequest is a single screenshot request against a Facility.
type CaptureRequest struct {
	Display          Display
	ExcludedApps     []Application
	Width            int
	Height           int
	PixelFormat      PixelFormat
	MinFrameInterval time.Duration
	// ShowCursor is best effort. CGFacility and ScreenshotFacility never
	// draw the cursor.
	ShowCursor bool
}

// Facility is the platform screen capture API.
type Facility interface {
	// ListShareableContent enumerates displays and applications.
	ListShareableContent(ctx context.Context, excludeCurrentAppWindows, onScreenOnly bool) (*ShareableContent, error)

	// CaptureImage grabs one frame of the requested display, leaving out
	// every window owned by req.ExcludedApps.
	CaptureImage(ctx context.Context, req *CaptureRequest) (*Frame, error)
}
