package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// PNGEncoder encodes frames as PNG. Output is lossless and deterministic
// for a given image and compression level.
type PNGEncoder struct {
	enc png.Encoder
}

// NewPNGEncoder creates a PNG encoder with the given compression level.
func NewPNGEncoder(level png.CompressionLevel) *PNGEncoder {
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: level}}
}

func (e *PNGEncoder) Encode(img *image.RGBA) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode: nil image")
	}
	var buf bytes.Buffer
	// RGBA plus zlib framing is a sane upper bound for small frames.
	buf.Grow(len(img.Pix)/2 + 1024)
	if err := e.enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
