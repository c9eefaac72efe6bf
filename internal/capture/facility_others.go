//go:build !darwin

package capture

import "fmt"

// NewPlatformFacility returns the preferred facility for this OS.
func NewPlatformFacility() Facility {
	return NewScreenshotFacility()
}

// OpenFacility returns the facility registered under name. CoreGraphics is
// only available on macOS.
func OpenFacility(name string) (Facility, error) {
	switch name {
	case "", "auto", "screenshot":
		return NewScreenshotFacility(), nil
	case "coregraphics":
		return nil, fmt.Errorf("capture: facility %q requires macOS", name)
	default:
		return nil, fmt.Errorf("capture: unknown facility %q", name)
	}
}
