package decoder

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
)

// PNGDecoder decodes PNG bytes into *image.RGBA.
type PNGDecoder struct{}

func NewPNGDecoder() *PNGDecoder {
	return &PNGDecoder{}
}

func (d *PNGDecoder) Decode(data []byte) (*image.RGBA, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	// png.Decode yields *image.NRGBA for images with alpha; convert so the
	// result is premultiplied like every other frame in the pipeline.
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}
