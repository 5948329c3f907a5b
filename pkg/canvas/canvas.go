// Package canvas is the render surface the pipeline paints camera frames and
// overlays onto, and the source the output stream is captured from.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/teslashibe/go-facefilter/pkg/compositor"
)

// Fallback dimensions when the source track reports no settings.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Canvas is an RGBA render surface safe for one painter and many readers.
type Canvas struct {
	mu  sync.RWMutex
	img *image.RGBA
}

// New creates a w×h canvas. Non-positive sizes fall back to 640×480.
func New(w, h int) *Canvas {
	w, h = normalize(w, h)
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func normalize(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return DefaultWidth, DefaultHeight
	}
	return w, h
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (w, h int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize reallocates the canvas if the dimensions changed and reports
// whether it did.
func (c *Canvas) Resize(w, h int) bool {
	w, h = normalize(w, h)

	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return false
	}
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
	return true
}

// Paint runs fn with exclusive access to the canvas. Everything painted in
// one call becomes visible to Snapshot atomically.
func (c *Canvas) Paint(fn func(p *Painter)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Painter{img: c.img})
}

// Snapshot returns a copy of the current canvas contents.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// Painter draws on a locked canvas. It implements compositor.Surface.
type Painter struct {
	img *image.RGBA
}

var _ compositor.Surface = (*Painter)(nil)

// Size returns the canvas dimensions.
func (p *Painter) Size() (int, int) {
	b := p.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear fills the canvas with c.
func (p *Painter) Clear(c color.Color) {
	draw.Draw(p.img, p.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// DrawFrame scales frame to cover the whole canvas.
func (p *Painter) DrawFrame(frame image.Image) {
	draw.ApproxBiLinear.Scale(p.img, p.img.Bounds(), frame, frame.Bounds(), draw.Src, nil)
}

// DrawOverlay draws img centered at the placement, rotated and scaled to
// the placement size. Alpha is respected.
func (p *Painter) DrawOverlay(img image.Image, pl compositor.Placement) {
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 || pl.Width <= 0 || pl.Height <= 0 {
		return
	}

	dc := gg.NewContextForRGBA(p.img)
	dc.Translate(pl.CenterX, pl.CenterY)
	dc.Rotate(pl.Angle)
	dc.Scale(pl.Width/float64(size.X), pl.Height/float64(size.Y))
	dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
}
