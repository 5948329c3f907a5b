package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/teslashibe/go-facefilter/pkg/compositor"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// near allows for interpolation rounding.
func near(a, b color.RGBA) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= 2 && d(a.G, b.G) <= 2 && d(a.B, b.B) <= 2 && d(a.A, b.A) <= 2
}

func TestNew_Fallback(t *testing.T) {
	c := New(0, 0)
	w, h := c.Size()
	if w != DefaultWidth || h != DefaultHeight {
		t.Errorf("Size: got %dx%d, want %dx%d", w, h, DefaultWidth, DefaultHeight)
	}
}

func TestResize(t *testing.T) {
	c := New(320, 240)
	if c.Resize(320, 240) {
		t.Error("Resize to the same size should be a no-op")
	}
	if !c.Resize(1280, 720) {
		t.Error("Resize to a new size should reallocate")
	}
	if w, h := c.Size(); w != 1280 || h != 720 {
		t.Errorf("Size: got %dx%d, want 1280x720", w, h)
	}
}

func TestDrawFrame_ScalesToCanvas(t *testing.T) {
	c := New(64, 48)
	red := color.RGBA{255, 0, 0, 255}

	c.Paint(func(p *Painter) {
		p.DrawFrame(solid(16, 12, red))
	})

	snap := c.Snapshot()
	for _, pt := range []image.Point{{0, 0}, {32, 24}, {63, 47}} {
		if got := snap.RGBAAt(pt.X, pt.Y); got != red {
			t.Errorf("pixel %v: got %v, want %v", pt, got, red)
		}
	}
}

func TestDrawOverlay_Centered(t *testing.T) {
	c := New(100, 100)
	black := color.RGBA{0, 0, 0, 255}
	green := color.RGBA{0, 255, 0, 255}

	c.Paint(func(p *Painter) {
		p.Clear(black)
		p.DrawOverlay(solid(10, 10, green), compositor.Placement{
			CenterX: 50, CenterY: 50, Width: 20, Height: 20,
		})
	})

	snap := c.Snapshot()
	if got := snap.RGBAAt(50, 50); !near(got, green) {
		t.Errorf("center pixel: got %v, want %v", got, green)
	}
	if got := snap.RGBAAt(10, 10); got != black {
		t.Errorf("outside pixel: got %v, want %v", got, black)
	}
	if got := snap.RGBAAt(70, 50); got != black {
		t.Errorf("pixel beyond overlay width: got %v, want %v", got, black)
	}
}

func TestDrawOverlay_TransparentKeepsFrame(t *testing.T) {
	c := New(40, 40)
	blue := color.RGBA{0, 0, 255, 255}

	c.Paint(func(p *Painter) {
		p.Clear(blue)
		p.DrawOverlay(image.NewRGBA(image.Rect(0, 0, 10, 10)), compositor.Placement{
			CenterX: 20, CenterY: 20, Width: 20, Height: 20,
		})
	})

	if got := c.Snapshot().RGBAAt(20, 20); got != blue {
		t.Errorf("transparent overlay changed pixel: got %v", got)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	c := New(8, 8)
	snap := c.Snapshot()
	snap.Set(0, 0, color.RGBA{1, 2, 3, 255})

	if got := c.Snapshot().RGBAAt(0, 0); got.R == 1 {
		t.Error("Snapshot should not alias canvas pixels")
	}
}
