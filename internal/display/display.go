// Package display shows the most recent desktop thumbnail in a window.
package display

import (
	"image"
	"math"
	"sync"
	"time"
)

// Display renders frames until the window is closed.
type Display interface {
	Run() error
}

// FrameSource provides decoded frames to the display.
type FrameSource interface {
	CurrentFrame() *image.RGBA
}

// FrameStore holds the latest decoded frame. Network goroutines write to it
// and the render loop reads from it.
type FrameStore struct {
	mu      sync.Mutex
	frame   *image.RGBA
	count   int
	updated time.Time
}

// SetFrame replaces the stored frame.
func (s *FrameStore) SetFrame(img *image.RGBA) {
	if img == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = img
	s.count++
	s.updated = time.Now()
}

// CurrentFrame returns the latest frame, or nil before the first one.
func (s *FrameStore) CurrentFrame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Stats reports how many frames arrived and when the last one did.
func (s *FrameStore) Stats() (count int, updated time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.updated
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	if frameW <= 0 || frameH <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
