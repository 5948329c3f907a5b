// Package compositor anchors overlay images to facial landmarks.
//
// Placement is a rigid two-point fit: translate, uniform scale and rotate.
// There is no perspective or skew correction.
package compositor

import (
	"image"
	"math"

	"github.com/teslashibe/go-facefilter/pkg/filter"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

// Placement is where one overlay lands on the render surface, in pixels.
type Placement struct {
	CenterX, CenterY float64
	Width, Height    float64
	Angle            float64 // radians, clockwise in image space
}

// Surface is a render target that can draw a rotated, scaled image.
type Surface interface {
	Size() (w, h int)
	DrawOverlay(img image.Image, p Placement)
}

// Images resolves overlay assets by location.
type Images interface {
	Image(src string) (image.Image, bool)
}

// Place computes the placement of one overlay. It reports false when either
// anchor is absent from the set or the asset has no area.
func Place(spec filter.OverlaySpec, set *landmark.Set, imgSize image.Point, surfW, surfH int) (Placement, bool) {
	left, ok := set.At(spec.AnchorPoints.Left)
	if !ok {
		return Placement{}, false
	}
	right, ok := set.At(spec.AnchorPoints.Right)
	if !ok {
		return Placement{}, false
	}
	if imgSize.X <= 0 || imgSize.Y <= 0 {
		return Placement{}, false
	}

	lx, ly := left.Pixel(surfW, surfH)
	rx, ry := right.Pixel(surfW, surfH)

	dx, dy := rx-lx, ry-ly
	distance := math.Hypot(dx, dy)

	width := distance * spec.Scale
	height := width * float64(imgSize.Y) / float64(imgSize.X)

	return Placement{
		CenterX: (lx + rx) / 2,
		CenterY: (ly+ry)/2 + spec.OffsetY*float64(surfH),
		Width:   width,
		Height:  height,
		Angle:   math.Atan2(dy, dx),
	}, true
}

// Composite draws every overlay of f in order and returns how many were drawn.
// Overlays with a missing image or missing anchors are skipped silently.
func Composite(s Surface, f *filter.Filter, images Images, set *landmark.Set) int {
	if f == nil || set == nil {
		return 0
	}

	w, h := s.Size()
	drawn := 0
	for _, spec := range f.Overlays {
		img, ok := images.Image(spec.Src)
		if !ok || img == nil {
			continue
		}
		p, ok := Place(spec, set, img.Bounds().Size(), w, h)
		if !ok {
			continue
		}
		s.DrawOverlay(img, p)
		drawn++
	}
	return drawn
}
