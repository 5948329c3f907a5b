package yunet

import (
	"math"
	"testing"

	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

func uprightFace() Face {
	return Face{
		X: 200, Y: 120, W: 240, H: 300,
		Keypoints: [5]landmark.Point{
			RightEye:   {X: 260, Y: 220},
			LeftEye:    {X: 380, Y: 220},
			NoseTip:    {X: 320, Y: 280},
			MouthRight: {X: 275, Y: 340},
			MouthLeft:  {X: 365, Y: 340},
		},
		Score: 0.9,
	}
}

func TestFace_LandmarksMapsKeypoints(t *testing.T) {
	set := uprightFace().Landmarks(640, 480)

	tests := []struct {
		name  string
		index int
		wantX float64
		wantY float64
	}{
		{"right eye", landmark.MeshRightEyeOuter, 260.0 / 640, 220.0 / 480},
		{"left eye", landmark.MeshLeftEyeOuter, 380.0 / 640, 220.0 / 480},
		{"nose tip", landmark.MeshNoseTip, 320.0 / 640, 280.0 / 480},
		{"mouth right", landmark.MeshMouthRight, 275.0 / 640, 340.0 / 480},
		{"mouth left", landmark.MeshMouthLeft, 365.0 / 640, 340.0 / 480},
		{"chin", landmark.MeshChin, 320.0 / 640, 420.0 / 480},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := set.At(tc.index)
			if !ok {
				t.Fatalf("index %d missing", tc.index)
			}
			if math.Abs(p.X-tc.wantX) > 1e-9 || math.Abs(p.Y-tc.wantY) > 1e-9 {
				t.Errorf("point: got (%.4f, %.4f), want (%.4f, %.4f)", p.X, p.Y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestFace_LandmarksDerivedPoints(t *testing.T) {
	set := uprightFace().Landmarks(640, 480)

	forehead, ok := set.At(landmark.MeshForehead)
	if !ok {
		t.Fatal("forehead missing")
	}
	// Eye distance 120px, forehead 0.9 of that above the eye midpoint.
	if x, y := forehead.Pixel(640, 480); math.Abs(x-320) > 1e-6 || math.Abs(y-112) > 1e-6 {
		t.Errorf("forehead: got (%.1f, %.1f), want (320, 112)", x, y)
	}

	rc, _ := set.At(landmark.MeshRightCheek)
	lc, _ := set.At(landmark.MeshLeftCheek)
	if rc.X >= 260.0/640 || lc.X <= 380.0/640 {
		t.Errorf("cheeks should sit outside the eyes: got %.3f, %.3f", rc.X, lc.X)
	}

	rn, _ := set.At(landmark.MeshRightNostril)
	ln, _ := set.At(landmark.MeshLeftNostril)
	if rn.Y != ln.Y || rn.X >= ln.X {
		t.Errorf("nostrils: got %+v, %+v", rn, ln)
	}

	if _, ok := set.At(200); ok {
		t.Error("unmapped indices should be absent")
	}
	if set.Len() != landmark.MeshSize {
		t.Errorf("Len: got %d, want %d", set.Len(), landmark.MeshSize)
	}
}

func TestFace_LandmarksRotated(t *testing.T) {
	f := uprightFace()
	// Head tilted 90°: eyes stacked vertically.
	f.Keypoints[RightEye] = landmark.Point{X: 320, Y: 180}
	f.Keypoints[LeftEye] = landmark.Point{X: 320, Y: 300}

	set := f.Landmarks(640, 480)
	forehead, _ := set.At(landmark.MeshForehead)
	x, y := forehead.Pixel(640, 480)
	// Up the face is +x when the eye axis points down the frame.
	if math.Abs(x-428) > 1e-6 || math.Abs(y-240) > 1e-6 {
		t.Errorf("forehead: got (%.1f, %.1f), want (428, 240)", x, y)
	}
}

func TestFace_LandmarksInvalidSize(t *testing.T) {
	if set := uprightFace().Landmarks(0, 480); set != nil {
		t.Error("zero width should produce no set")
	}
}

func TestSelectBest(t *testing.T) {
	if SelectBest(nil) != nil {
		t.Error("no faces should select nothing")
	}

	faces := []Face{
		{W: 50, H: 50, Score: 0.95},
		{W: 200, H: 200, Score: 0.85},
		{W: 100, H: 100, Score: 0.6},
	}
	best := SelectBest(faces)
	if best != &faces[1] {
		t.Errorf("SelectBest: got %+v, want the large face", best)
	}
}
