//go:build darwin

package capture

import "fmt"

// NewPlatformFacility returns the preferred facility for this OS.
func NewPlatformFacility() Facility {
	return NewCGFacility()
}

// OpenFacility returns the facility registered under name: "auto",
// "coregraphics" or "screenshot".
func OpenFacility(name string) (Facility, error) {
	switch name {
	case "", "auto", "coregraphics":
		return NewCGFacility(), nil
	case "screenshot":
		return NewScreenshotFacility(), nil
	default:
		return nil, fmt.Errorf("capture: unknown facility %q", name)
	}
}
