// Package compare measures how far apart two normalized frames are.
package compare

import "image"

// DefaultThreshold tolerates capture and encoding noise: a uniform
// per-channel offset of 1 passes, an offset of 2 does not.
const DefaultThreshold = 2.0

// Variance returns the mean squared per-channel difference between a and b.
// ok is false when the frames cannot be compared because their sizes differ.
func Variance(a, b *image.RGBA) (variance float64, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w != b.Rect.Dx() || h != b.Rect.Dy() {
		return 0, false
	}
	total := w * h * 4
	if total == 0 {
		return 0, true
	}

	var sum float64
	rowBytes := w * 4
	for y := 0; y < h; y++ {
		ra := a.Pix[a.PixOffset(a.Rect.Min.X, a.Rect.Min.Y+y):][:rowBytes]
		rb := b.Pix[b.PixOffset(b.Rect.Min.X, b.Rect.Min.Y+y):][:rowBytes]
		for i := range ra {
			d := float64(ra[i]) - float64(rb[i])
			sum += d * d
		}
	}
	return sum / float64(total), true
}

// Equivalent reports whether a and b differ by less than threshold.
// Frames of different sizes are never equivalent.
func Equivalent(a, b *image.RGBA, threshold float64) bool {
	v, ok := Variance(a, b)
	return ok && v < threshold
}

// Comparator binds a threshold for use as a pipeline dependency.
type Comparator struct {
	Threshold float64
}

// NewComparator returns a Comparator using DefaultThreshold.
func NewComparator() Comparator {
	return Comparator{Threshold: DefaultThreshold}
}

// Equivalent reports whether a and b are within the comparator's threshold.
func (c Comparator) Equivalent(a, b *image.RGBA) bool {
	return Equivalent(a, b, c.Threshold)
}
