//go:build !darwin

package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFacility(t *testing.T) {
	f, err := OpenFacility("auto")
	require.NoError(t, err)
	assert.IsType(t, &ScreenshotFacility{}, f)

	_, err = OpenFacility("coregraphics")
	assert.ErrorContains(t, err, "requires macOS")

	_, err = OpenFacility("dxgi")
	assert.ErrorContains(t, err, "unknown facility")
}
