package yunet

import (
	"math"

	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

// Keypoint order in YuNet output rows.
const (
	RightEye = iota
	LeftEye
	NoseTip
	MouthRight
	MouthLeft
)

// KeypointIndex maps YuNet keypoints onto FaceMesh indices.
var KeypointIndex = [5]int{
	RightEye:   landmark.MeshRightEyeOuter,
	LeftEye:    landmark.MeshLeftEyeOuter,
	NoseTip:    landmark.MeshNoseTip,
	MouthRight: landmark.MeshMouthRight,
	MouthLeft:  landmark.MeshMouthLeft,
}

// Face is one YuNet detection in pixel coordinates.
type Face struct {
	X, Y, W, H float64 // Bounding box
	Keypoints  [5]landmark.Point
	Score      float64
}

// Area returns the bounding box area in pixels.
func (f Face) Area() float64 {
	return f.W * f.H
}

// SelectBest picks the face to track.
// Priority: score * 0.7 + relative area * 0.3
func SelectBest(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}
	if len(faces) == 1 {
		return &faces[0]
	}

	maxArea := 0.0
	for _, f := range faces {
		maxArea = math.Max(maxArea, f.Area())
	}
	if maxArea == 0 {
		maxArea = 1
	}

	bestScore := -1.0
	var best *Face
	for i := range faces {
		score := faces[i].Score*0.7 + (faces[i].Area()/maxArea)*0.3
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}
	return best
}

// Landmarks converts the face into a sparse FaceMesh set normalized to a
// w×h frame. Besides the five keypoints it estimates the forehead, cheek,
// nostril and chin points the built-in catalog anchors to, using the eye
// axis as the face's scale and orientation.
func (f Face) Landmarks(w, h int) *landmark.Set {
	if w <= 0 || h <= 0 {
		return nil
	}

	px := make(map[int]landmark.Point, 13)
	for i, kp := range f.Keypoints {
		px[KeypointIndex[i]] = kp
	}

	re, le := f.Keypoints[RightEye], f.Keypoints[LeftEye]
	nose := f.Keypoints[NoseTip]
	ex, ey := le.X-re.X, le.Y-re.Y
	// Perpendicular to the eye axis, pointing up the face.
	ux, uy := ey, -ex
	mid := landmark.Point{X: (re.X + le.X) / 2, Y: (re.Y + le.Y) / 2}

	at := func(p landmark.Point, along, up float64) landmark.Point {
		return landmark.Point{X: p.X + along*ex + up*ux, Y: p.Y + along*ey + up*uy}
	}

	px[landmark.MeshForehead] = at(mid, 0, 0.9)
	px[landmark.MeshRightForehead] = at(re, -0.1, 0.6)
	px[landmark.MeshLeftForehead] = at(le, 0.1, 0.6)
	px[landmark.MeshRightCheek] = at(re, -0.4, 0)
	px[landmark.MeshLeftCheek] = at(le, 0.4, 0)
	px[landmark.MeshRightNostril] = at(nose, -0.15, 0)
	px[landmark.MeshLeftNostril] = at(nose, 0.15, 0)
	if f.H > 0 {
		px[landmark.MeshChin] = landmark.Point{X: f.X + f.W/2, Y: f.Y + f.H}
	}

	norm := make(map[int]landmark.Point, len(px))
	for i, p := range px {
		norm[i] = landmark.Point{X: p.X / float64(w), Y: p.Y / float64(h)}
	}
	return landmark.NewSparseSet(landmark.MeshSize, norm)
}
