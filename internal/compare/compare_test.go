package compare

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(w, h int, v byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestIdenticalFramesAreEquivalent(t *testing.T) {
	a := filled(64, 36, 90)
	b := filled(64, 36, 90)

	v, ok := Variance(a, b)
	require.True(t, ok)
	assert.Zero(t, v)
	assert.True(t, Equivalent(a, b, DefaultThreshold))
	assert.True(t, NewComparator().Equivalent(a, a))
}

func TestUniformOffsetFlipsAtSqrtThreshold(t *testing.T) {
	base := filled(10, 10, 100)

	for _, tt := range []struct {
		offset     byte
		variance   float64
		equivalent bool
	}{
		{offset: 1, variance: 1, equivalent: true},
		{offset: 2, variance: 4, equivalent: false},
		{offset: 3, variance: 9, equivalent: false},
	} {
		other := filled(10, 10, 100+tt.offset)
		v, ok := Variance(base, other)
		require.True(t, ok)
		assert.InDelta(t, tt.variance, v, 1e-9, "offset %d", tt.offset)
		assert.Equal(t, tt.equivalent, Equivalent(base, other, DefaultThreshold), "offset %d", tt.offset)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	a := filled(4, 4, 0)
	b := filled(4, 4, 2)
	assert.False(t, Equivalent(a, b, 4.0))
	assert.True(t, Equivalent(a, b, 4.0001))
}

func TestDifferentSizesAreNeverEquivalent(t *testing.T) {
	a := filled(64, 36, 0)
	b := filled(36, 64, 0)

	_, ok := Variance(a, b)
	assert.False(t, ok)
	assert.False(t, Equivalent(a, b, DefaultThreshold))
	assert.False(t, Equivalent(a, nil, DefaultThreshold))
}

func TestVarianceHandlesSubImages(t *testing.T) {
	big := filled(20, 20, 50)
	sub := big.SubImage(image.Rect(5, 5, 15, 15)).(*image.RGBA)
	small := filled(10, 10, 50)

	v, ok := Variance(sub, small)
	require.True(t, ok)
	assert.Zero(t, v)
}

func TestVarianceAccumulatesLargeDifferences(t *testing.T) {
	a := filled(64, 64, 0)
	b := filled(64, 64, 255)

	v, ok := Variance(a, b)
	require.True(t, ok)
	assert.InDelta(t, 255.0*255.0, v, 1e-6)
}
