package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNGEncoderProducesPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(3, 2, color.RGBA{R: 200, G: 10, B: 30, A: 255})

	data, err := NewPNGEncoder(png.DefaultCompression).Encode(img)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func TestPNGEncoderIsDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	enc := NewPNGEncoder(png.BestCompression)

	a, err := enc.Encode(img)
	require.NoError(t, err)
	b, err := enc.Encode(img)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPNGEncoderRejectsNil(t *testing.T) {
	_, err := NewPNGEncoder(png.DefaultCompression).Encode(nil)
	assert.Error(t, err)
}
