package landmark

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/teslashibe/go-facefilter/internal/log"
)

func TestSet_At(t *testing.T) {
	s := NewSet([]Point{{0.1, 0.2}, {0.3, 0.4}})

	tests := []struct {
		name   string
		idx    int
		wantOK bool
		want   Point
	}{
		{"first", 0, true, Point{0.1, 0.2}},
		{"second", 1, true, Point{0.3, 0.4}},
		{"out of range", 2, false, Point{}},
		{"negative", -1, false, Point{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := s.At(tc.idx)
			if ok != tc.wantOK || p != tc.want {
				t.Errorf("At(%d): got %v,%v want %v,%v", tc.idx, p, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestSparseSet(t *testing.T) {
	s := NewSparseSet(MeshSize, map[int]Point{
		MeshRightEyeOuter: {0.3, 0.4},
		MeshLeftEyeOuter:  {0.6, 0.4},
		9999:              {0.5, 0.5},
	})

	if s.Len() != MeshSize {
		t.Errorf("Len: got %d, want %d", s.Len(), MeshSize)
	}
	if _, ok := s.At(MeshRightEyeOuter); !ok {
		t.Error("At(33): expected present")
	}
	if _, ok := s.At(MeshNoseTip); ok {
		t.Error("At(1): expected absent in sparse set")
	}
	if got := len(s.Points()); got != 2 {
		t.Errorf("Points: got %d entries, want 2", got)
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	if _, ok := s.At(0); ok {
		t.Error("nil set should have no points")
	}
	if s.Len() != 0 {
		t.Error("nil set Len should be 0")
	}
}

func TestPoint_Pixel(t *testing.T) {
	x, y := Point{0.5, 0.25}.Pixel(640, 480)
	if x != 320 || y != 120 {
		t.Errorf("Pixel: got (%v,%v), want (320,120)", x, y)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig invalid: %v", errs)
	}

	cfg.MaxFaces = 2
	cfg.MinTrackingConfidence = 0
	if errs := cfg.Validate(); len(errs) != 2 {
		t.Errorf("Validate: got %v, want 2 errors", errs)
	}
}

func TestAdapter_CachesLastResult(t *testing.T) {
	face := NewSet([]Point{{0.1, 0.1}})
	mock := NewMock(face)

	a, err := NewAdapter(context.Background(), mock.Factory(), DefaultConfig(), log.Discard())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	if a.Latest() != nil {
		t.Error("Latest should be nil before any submission")
	}
	a.Submit(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if a.Latest() != face {
		t.Error("Latest should hold the callback result")
	}

	// Reads never consume the value.
	if a.Latest() != face {
		t.Error("Latest should survive repeated reads")
	}

	// A callback with no face overwrites the slot.
	mock.SendFunc = func(ctx context.Context, frame image.Image) (Result, error) {
		return Result{}, nil
	}
	a.Submit(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if a.Latest() != nil {
		t.Error("empty result should overwrite the cached set")
	}
}

func TestAdapter_FailureMarksNotReady(t *testing.T) {
	face := NewSet([]Point{{0.1, 0.1}})
	mock := NewMock(face)
	a, err := NewAdapter(context.Background(), mock.Factory(), DefaultConfig(), log.Discard())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	a.Submit(context.Background(), frame)

	mock.SendFunc = func(ctx context.Context, frame image.Image) (Result, error) {
		return Result{}, errors.New("runtime aborted")
	}
	a.Submit(context.Background(), frame)

	if a.Ready() {
		t.Error("adapter should be not ready after a failed submission")
	}
	if a.Latest() != face {
		t.Error("last pose should be kept after a failure")
	}

	// Further submissions are ignored until restart.
	before := mock.Sends()
	a.Submit(context.Background(), frame)
	if mock.Sends() != before {
		t.Error("not-ready adapter should not submit")
	}

	a.Restart()
	if !a.Ready() {
		t.Error("Restart should restore readiness")
	}

	subs, fails := a.Stats()
	if subs != 2 || fails != 1 {
		t.Errorf("Stats: got (%d,%d), want (2,1)", subs, fails)
	}
}

func TestNewAdapter_FactoryError(t *testing.T) {
	factory := func(ctx context.Context, cfg Config) (Detector, error) {
		return nil, errors.New("wasm load failed")
	}
	_, err := NewAdapter(context.Background(), factory, DefaultConfig(), log.Discard())
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Errorf("NewAdapter: got %v, want ErrDetectorUnavailable", err)
	}
}

func TestAdapter_Close(t *testing.T) {
	mock := NewMock(nil)
	a, err := NewAdapter(context.Background(), mock.Factory(), DefaultConfig(), log.Discard())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mock.Closed() {
		t.Error("Close should close the detector")
	}
	if a.Ready() {
		t.Error("closed adapter should not be ready")
	}
}

func TestAdapter_SingleSlot(t *testing.T) {
	a, err := NewAdapter(context.Background(), NewMock(nil).Factory(), DefaultConfig(), log.Discard())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	other, err := NewAdapter(context.Background(), NewMock(nil).Factory(), DefaultConfig(), log.Discard())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	if !a.Acquire() {
		t.Fatal("first Acquire should succeed")
	}
	if a.Acquire() {
		t.Error("second Acquire should fail while the slot is held")
	}
	if !other.Acquire() {
		t.Error("slots are per adapter")
	}
	a.Release()
	if a.Busy() || !a.Acquire() {
		t.Error("Release should free the slot")
	}
}
