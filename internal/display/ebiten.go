package display

import (
	"fmt"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitenDisplay renders the latest thumbnail using Ebitengine. Thumbnails are
// tiny, so they are upscaled with nearest filtering to keep edges crisp.
type EbitenDisplay struct {
	source      FrameSource
	stats       func() (int, time.Time)
	title       string
	ebitenImage *ebiten.Image
	shown       *image.RGBA
}

// NewEbitenDisplay creates an Ebitengine-based display reading from store.
func NewEbitenDisplay(store *FrameStore, title string) *EbitenDisplay {
	return &EbitenDisplay{
		source: store,
		stats:  store.Stats,
		title:  title,
	}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	ebiten.SetWindowSize(640, 400)
	ebiten.SetWindowTitle(d.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	// Frames arrive at most once a second.
	ebiten.SetTPS(10)
	return ebiten.RunGame(d)
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	frame := d.source.CurrentFrame()
	if frame == nil {
		ebitenutil.DebugPrint(screen, "waiting for first frame")
		return
	}

	fb := frame.Bounds()
	if d.ebitenImage == nil ||
		d.ebitenImage.Bounds().Dx() != fb.Dx() ||
		d.ebitenImage.Bounds().Dy() != fb.Dy() {
		if d.ebitenImage != nil {
			d.ebitenImage.Deallocate()
		}
		d.ebitenImage = ebiten.NewImage(fb.Dx(), fb.Dy())
		d.shown = nil
	}
	if frame != d.shown {
		d.ebitenImage.WritePixels(frame.Pix)
		d.shown = frame
	}

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), float64(fb.Dx()), float64(fb.Dy()))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(d.ebitenImage, op)

	count, updated := d.stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%dx%d  frames %d  updated %s",
		fb.Dx(), fb.Dy(), count, updated.Format(time.TimeOnly)))
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
