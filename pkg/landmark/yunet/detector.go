// Package yunet adapts OpenCV's FaceDetectorYN to the landmark.Detector
// contract. YuNet reports five keypoints per face; they are mapped onto
// FaceMesh indices so mesh-anchored filters work unchanged.
package yunet

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

// Config holds YuNet configuration.
type Config struct {
	ModelPath      string  // Path to ONNX model
	ScoreThreshold float64 // Minimum confidence (default 0.5)
	NMSThreshold   float64 // Non-maximum suppression threshold
	TopK           int     // Candidates kept before NMS
	InputWidth     int     // Initial model input width
	InputHeight    int     // Initial model input height
}

// DefaultConfig returns production defaults for YuNet.
func DefaultConfig() Config {
	return Config{
		ModelPath:      "models/face_detection_yunet.onnx",
		ScoreThreshold: 0.5,
		NMSThreshold:   0.3,
		TopK:           5000,
		InputWidth:     320,
		InputHeight:    320,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errs []string
	if c.ModelPath == "" {
		errs = append(errs, "model_path is required")
	}
	if c.ScoreThreshold <= 0 || c.ScoreThreshold > 1 {
		errs = append(errs, "score_threshold must be in (0, 1]")
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		errs = append(errs, "nms_threshold must be in (0, 1]")
	}
	if c.TopK <= 0 {
		errs = append(errs, "top_k must be > 0")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		errs = append(errs, "input size must be positive")
	}
	return errs
}

// Detector runs YuNet on submitted frames.
type Detector struct {
	net    gocv.FaceDetectorYN
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex // Protects inference
	callback landmark.ResultFunc
	closed   bool
}

var _ landmark.Detector = (*Detector)(nil)

// New loads the model.
func New(cfg Config) (*Detector, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid yunet config: %v", errs)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", cfg.ModelPath, err)
	}

	net := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ScoreThreshold),
		float32(cfg.NMSThreshold),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Detector{
		net:    net,
		cfg:    cfg,
		logger: log.Component("yunet"),
	}, nil
}

// Factory returns a landmark.Factory building YuNet detectors. The
// pipeline's detection confidence overrides the score threshold.
func Factory(cfg Config) landmark.Factory {
	return func(ctx context.Context, lc landmark.Config) (landmark.Detector, error) {
		if lc.MinDetectionConfidence > 0 {
			cfg.ScoreThreshold = lc.MinDetectionConfidence
		}
		return New(cfg)
	}
}

// OnResults registers the result callback.
func (d *Detector) OnResults(fn landmark.ResultFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// Send detects faces in frame and delivers the best one.
func (d *Detector) Send(ctx context.Context, frame image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	faces, size, err := d.Detect(frame)
	if err != nil {
		return err
	}

	var res landmark.Result
	if best := SelectBest(faces); best != nil {
		res.Faces = []*landmark.Set{best.Landmarks(size.X, size.Y)}
	}

	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb != nil {
		cb(res)
	}
	return nil
}

// Detect runs the model and returns every face in pixel coordinates along
// with the frame size.
func (d *Detector) Detect(frame image.Image) ([]Face, image.Point, error) {
	if frame == nil {
		return nil, image.Point{}, fmt.Errorf("nil frame")
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, image.Point{}, fmt.Errorf("empty image")
	}
	size := image.Pt(img.Cols(), img.Rows())

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, size, landmark.ErrClosed
	}

	d.net.SetInputSize(size)

	out := gocv.NewMat()
	defer out.Close()
	d.net.Detect(img, &out)

	// 15 columns per row: box (4), five keypoints (10), score.
	faces := make([]Face, 0, out.Rows())
	for r := 0; r < out.Rows(); r++ {
		f := Face{
			X:     float64(out.GetFloatAt(r, 0)),
			Y:     float64(out.GetFloatAt(r, 1)),
			W:     float64(out.GetFloatAt(r, 2)),
			H:     float64(out.GetFloatAt(r, 3)),
			Score: float64(out.GetFloatAt(r, 14)),
		}
		for k := 0; k < 5; k++ {
			f.Keypoints[k] = landmark.Point{
				X: float64(out.GetFloatAt(r, 4+2*k)),
				Y: float64(out.GetFloatAt(r, 5+2*k)),
			}
		}
		faces = append(faces, f)
	}

	if len(faces) > 0 {
		d.logger.Debug("faces detected", "count", len(faces))
	}
	return faces, size, nil
}

// Close releases the model.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.net.Close()
	return nil
}
