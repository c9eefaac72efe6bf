// Package encoder turns normalized frames into the bytes sent to subscribers.
package encoder

import "image"

// Encoder encodes an image into bytes.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
}
