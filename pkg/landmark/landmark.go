// Package landmark models facial landmark sets and wraps external landmark
// detectors behind a pollable "last known result" adapter.
package landmark

// Point is a normalized landmark coordinate. X and Y are in [0,1] relative to
// the frame width and height.
type Point struct {
	X, Y float64
}

// Pixel converts the point into pixel space for a w×h surface.
func (p Point) Pixel(w, h int) (x, y float64) {
	return p.X * float64(w), p.Y * float64(h)
}

// Set is one face's landmarks. Sets produced by detectors with only a handful
// of keypoints are sparse: indices without a point report absent.
type Set struct {
	points  []Point
	present []bool // nil means every index is present
}

// NewSet wraps a dense list of points.
func NewSet(points []Point) *Set {
	return &Set{points: points}
}

// NewSparseSet builds a set of length n holding only the given indices.
// Indices outside [0,n) are dropped.
func NewSparseSet(n int, points map[int]Point) *Set {
	s := &Set{
		points:  make([]Point, n),
		present: make([]bool, n),
	}
	for i, p := range points {
		if i < 0 || i >= n {
			continue
		}
		s.points[i] = p
		s.present[i] = true
	}
	return s
}

// At returns the point at index i and whether it exists.
func (s *Set) At(i int) (Point, bool) {
	if s == nil || i < 0 || i >= len(s.points) {
		return Point{}, false
	}
	if s.present != nil && !s.present[i] {
		return Point{}, false
	}
	return s.points[i], true
}

// Len returns the index range of the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Points returns a copy of the present points keyed by index.
func (s *Set) Points() map[int]Point {
	out := make(map[int]Point)
	for i := 0; i < s.Len(); i++ {
		if p, ok := s.At(i); ok {
			out[i] = p
		}
	}
	return out
}

// Well-known FaceMesh indices used by the built-in catalog.
const (
	MeshSize = 468

	MeshNoseTip       = 1
	MeshForehead      = 10
	MeshRightEyeOuter = 33
	MeshMouthRight    = 61
	MeshRightNostril  = 98
	MeshRightForehead = 103
	MeshRightCheek    = 127
	MeshChin          = 152
	MeshLeftEyeOuter  = 263
	MeshMouthLeft     = 291
	MeshLeftNostril   = 327
	MeshLeftForehead  = 332
	MeshLeftCheek     = 356
)
