package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// WallpaperAgentBundleID is the macOS process that renders the desktop picture.
const WallpaperAgentBundleID = "com.apple.wallpaper.agent"

// DefaultAllowList is what ContentSource leaves visible when no allow list is
// given. Window-list facilities only report owner names, so the names of the
// wallpaper window owners are listed next to the bundle ID: "Wallpaper" on
// macOS 14 and later, "Dock" before that.
var DefaultAllowList = []string{WallpaperAgentBundleID, "Wallpaper", "Dock"}

// MinFrameInterval caps the facility's internal sampling rate.
const MinFrameInterval = time.Second / 60

var (
	// ErrEnumeration means shareable content could not be listed,
	// usually because screen recording permission is missing.
	ErrEnumeration = errors.New("capture: enumerate shareable content")

	// ErrNoDisplay means no capturable display was reported.
	ErrNoDisplay = errors.New("capture: no display")

	// ErrCapture means the facility failed to produce an image.
	ErrCapture = errors.New("capture: capture image")
)

// Source produces one raw frame per call.
type Source interface {
	Capture(ctx context.Context) (*Frame, error)
}

// ContentSource captures the desktop background of the primary display by
// excluding every application that is not on its allow list.
type ContentSource struct {
	facility Facility
	allow    map[string]bool
	logger   *slog.Logger
}

// SourceOption configures a ContentSource.
type SourceOption func(*ContentSource)

// WithAllowList replaces the default allow list. Entries match an
// application's bundle identifier or its name.
func WithAllowList(ids ...string) SourceOption {
	return func(s *ContentSource) {
		s.allow = make(map[string]bool, len(ids))
		for _, id := range ids {
			if id != "" {
				s.allow[id] = true
			}
		}
	}
}

// WithSourceLogger sets the logger used for diagnostics.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(s *ContentSource) {
		s.logger = l
	}
}

// NewContentSource creates a Source backed by the given facility.
func NewContentSource(facility Facility, opts ...SourceOption) *ContentSource {
	s := &ContentSource{
		facility: facility,
		logger:   slog.Default(),
	}
	WithAllowList(DefaultAllowList...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture enumerates content and grabs one frame of the first display.
func (s *ContentSource) Capture(ctx context.Context) (*Frame, error) {
	content, err := s.facility.ListShareableContent(ctx, false, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}
	if content == nil || len(content.Displays) == 0 {
		return nil, ErrNoDisplay
	}
	display := content.Displays[0]

	req := &CaptureRequest{
		Display:          display,
		ExcludedApps:     s.excluded(content.Applications),
		Width:            display.PixelWidth(),
		Height:           display.PixelHeight(),
		PixelFormat:      PixelFormatRGBA,
		MinFrameInterval: MinFrameInterval,
		ShowCursor:       true,
	}
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("%w: display %d has no pixels", ErrNoDisplay, display.ID)
	}

	frame, err := s.facility.CaptureImage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("%w: empty frame", ErrCapture)
	}

	s.logger.Debug("captured frame",
		"display", display.ID,
		"width", frame.Width,
		"height", frame.Height,
		"excluded", len(req.ExcludedApps),
	)
	return frame, nil
}

func (s *ContentSource) excluded(apps []Application) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		if s.allowed(app) {
			continue
		}
		out = append(out, app)
	}
	return out
}

func (s *ContentSource) allowed(app Application) bool {
	if app.BundleID != "" && s.allow[app.BundleID] {
		return true
	}
	return app.Name != "" && s.allow[app.Name]
}
