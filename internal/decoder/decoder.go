// Package decoder turns received frame bytes back into images.
package decoder

import "image"

// Decoder decodes bytes into an image.
type Decoder interface {
	Decode(data []byte) (*image.RGBA, error)
}
