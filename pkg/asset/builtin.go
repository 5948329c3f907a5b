package asset

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
)

const builtinScheme = "builtin:"

// builtinWidth is the pixel width builtin overlays are rendered at. The
// compositor rescales them per frame, so only the aspect ratio matters.
const builtinWidth = 512

type painter struct {
	aspect float64 // height / width
	draw   func(dc *gg.Context, w, h float64)
}

var builtins = map[string]painter{
	"glasses":    {aspect: 0.36, draw: drawGlasses(false)},
	"sunglasses": {aspect: 0.36, draw: drawGlasses(true)},
	"crown":      {aspect: 0.6, draw: drawCrown},
	"mustache":   {aspect: 0.3, draw: drawMustache},
	"dog-ears":   {aspect: 0.55, draw: drawDogEars},
	"dog-nose":   {aspect: 0.7, draw: drawDogNose},
	"party-hat":  {aspect: 1.1, draw: drawPartyHat},
	"clown-nose": {aspect: 1.0, draw: drawClownNose},
}

// BuiltinNames lists the procedural overlays, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin renders a procedural overlay on a transparent background.
func Builtin(name string) (image.Image, error) {
	p, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuiltin, name)
	}

	w := float64(builtinWidth)
	h := math.Round(w * p.aspect)
	dc := gg.NewContext(int(w), int(h))
	p.draw(dc, w, h)
	return dc.Image(), nil
}

func drawGlasses(tinted bool) func(dc *gg.Context, w, h float64) {
	return func(dc *gg.Context, w, h float64) {
		r := h * 0.4
		lx, rx, cy := w*0.27, w*0.73, h*0.5

		if tinted {
			dc.SetRGBA(0.05, 0.05, 0.08, 0.85)
			dc.DrawEllipse(lx, cy, r*1.15, r)
			dc.DrawEllipse(rx, cy, r*1.15, r)
			dc.Fill()
		} else {
			dc.SetRGBA(0.8, 0.9, 1, 0.15)
			dc.DrawCircle(lx, cy, r)
			dc.DrawCircle(rx, cy, r)
			dc.Fill()
		}

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.SetLineWidth(h * 0.07)
		if tinted {
			dc.DrawEllipse(lx, cy, r*1.15, r)
			dc.DrawEllipse(rx, cy, r*1.15, r)
		} else {
			dc.DrawCircle(lx, cy, r)
			dc.DrawCircle(rx, cy, r)
		}
		dc.Stroke()

		// Bridge and temples.
		dc.DrawLine(lx+r, cy-r*0.2, rx-r, cy-r*0.2)
		dc.DrawLine(lx-r*1.1, cy-r*0.3, w*0.01, cy-r*0.45)
		dc.DrawLine(rx+r*1.1, cy-r*0.3, w*0.99, cy-r*0.45)
		dc.Stroke()
	}
}

func drawCrown(dc *gg.Context, w, h float64) {
	base := h * 0.92
	dc.MoveTo(w*0.05, base)
	dc.LineTo(w*0.05, h*0.35)
	dc.LineTo(w*0.27, h*0.62)
	dc.LineTo(w*0.5, h*0.08)
	dc.LineTo(w*0.73, h*0.62)
	dc.LineTo(w*0.95, h*0.35)
	dc.LineTo(w*0.95, base)
	dc.ClosePath()
	dc.SetRGB(0.95, 0.76, 0.15)
	dc.FillPreserve()
	dc.SetRGB(0.65, 0.45, 0.05)
	dc.SetLineWidth(h * 0.03)
	dc.Stroke()

	jewels := []struct{ x, r, g, b float64 }{
		{0.25, 0.85, 0.1, 0.2},
		{0.5, 0.1, 0.35, 0.85},
		{0.75, 0.1, 0.7, 0.3},
	}
	for _, j := range jewels {
		dc.SetRGB(j.r, j.g, j.b)
		dc.DrawCircle(w*j.x, h*0.78, h*0.07)
		dc.Fill()
	}
}

func drawMustache(dc *gg.Context, w, h float64) {
	dc.SetRGB(0.2, 0.12, 0.06)
	for _, side := range []float64{-1, 1} {
		cx := w * 0.5
		dc.MoveTo(cx, h*0.25)
		dc.CubicTo(cx+side*w*0.15, h*0.0, cx+side*w*0.35, h*0.2, cx+side*w*0.48, h*0.55)
		dc.CubicTo(cx+side*w*0.35, h*0.95, cx+side*w*0.15, h*0.75, cx, h*0.6)
		dc.ClosePath()
		dc.Fill()
	}
}

func drawDogEars(dc *gg.Context, w, h float64) {
	for _, side := range []float64{-1, 1} {
		cx := w*0.5 + side*w*0.38
		dc.Push()
		dc.RotateAbout(side*0.35, cx, h*0.5)
		dc.SetRGB(0.45, 0.28, 0.12)
		dc.DrawEllipse(cx, h*0.5, w*0.11, h*0.45)
		dc.Fill()
		dc.SetRGB(0.85, 0.6, 0.55)
		dc.DrawEllipse(cx, h*0.55, w*0.06, h*0.3)
		dc.Fill()
		dc.Pop()
	}
}

func drawDogNose(dc *gg.Context, w, h float64) {
	dc.SetRGB(0.08, 0.06, 0.06)
	dc.DrawEllipse(w*0.5, h*0.45, w*0.42, h*0.4)
	dc.Fill()
	dc.SetRGBA(1, 1, 1, 0.35)
	dc.DrawEllipse(w*0.4, h*0.3, w*0.12, h*0.08)
	dc.Fill()
}

func drawPartyHat(dc *gg.Context, w, h float64) {
	dc.MoveTo(w*0.5, h*0.05)
	dc.LineTo(w*0.9, h*0.95)
	dc.LineTo(w*0.1, h*0.95)
	dc.ClosePath()
	dc.SetRGB(0.2, 0.6, 0.95)
	dc.Fill()

	dc.SetRGB(0.98, 0.85, 0.2)
	dc.SetLineWidth(w * 0.04)
	for i := 1; i <= 3; i++ {
		y := h * (0.05 + 0.9*float64(i)/4)
		half := (y - h*0.05) / (h * 0.9) * w * 0.4
		dc.DrawLine(w*0.5-half, y, w*0.5+half, y)
	}
	dc.Stroke()

	dc.SetRGB(0.95, 0.3, 0.4)
	dc.DrawCircle(w*0.5, h*0.06, w*0.07)
	dc.Fill()
}

func drawClownNose(dc *gg.Context, w, h float64) {
	grad := gg.NewRadialGradient(w*0.4, h*0.35, w*0.05, w*0.5, h*0.5, w*0.48)
	grad.AddColorStop(0, rgb(1, 0.55, 0.55))
	grad.AddColorStop(1, rgb(0.8, 0.02, 0.05))
	dc.SetFillStyle(grad)
	dc.DrawCircle(w*0.5, h*0.5, w*0.46)
	dc.Fill()
}

func rgb(r, g, b float64) color.Color {
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
