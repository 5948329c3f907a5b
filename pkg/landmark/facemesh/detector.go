// Package facemesh runs MediaPipe FaceMesh in a helper process. Frames are
// written to its stdin as length-prefixed JPEG; each frame is answered with
// one JSON line on stdout carrying 468 normalized landmarks per face.
package facemesh

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

// Config holds helper process configuration.
type Config struct {
	Python      string   // Interpreter used with Script
	Script      string   // Path to the FaceMesh service
	Command     []string // Full argv; overrides Python and Script
	Env         []string // Extra environment for the process
	JPEGQuality int      // Encoding quality for submitted frames

	MaxFaces               int
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
}

// DefaultConfig returns defaults matching scripts/facemesh_service.py.
func DefaultConfig() Config {
	lc := landmark.DefaultConfig()
	return Config{
		Python:                 "python3",
		Script:                 "scripts/facemesh_service.py",
		JPEGQuality:            80,
		MaxFaces:               lc.MaxFaces,
		MinDetectionConfidence: lc.MinDetectionConfidence,
		MinTrackingConfidence:  lc.MinTrackingConfidence,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errs []string
	if len(c.Command) == 0 && (c.Python == "" || c.Script == "") {
		errs = append(errs, "python and script are required without command")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, "jpeg_quality must be in [1, 100]")
	}
	return errs
}

func (c *Config) argv() []string {
	if len(c.Command) > 0 {
		return c.Command
	}
	return []string{
		c.Python, c.Script,
		"--max-faces", strconv.Itoa(c.MaxFaces),
		"--min-detection-confidence", strconv.FormatFloat(c.MinDetectionConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(c.MinTrackingConfidence, 'f', -1, 64),
	}
}

// Detector is a landmark.Detector backed by the helper process. The process
// starts on the first Send.
type Detector struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	callback landmark.ResultFunc
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   *bufio.Reader
	started  bool
	closed   bool
	restarts int
}

var _ landmark.Detector = (*Detector)(nil)

// New validates cfg. The script must exist unless Command is set.
func New(cfg Config) (*Detector, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid facemesh config: %v", errs)
	}
	if len(cfg.Command) == 0 {
		if _, err := os.Stat(cfg.Script); err != nil {
			return nil, fmt.Errorf("facemesh script not found: %s: %w", cfg.Script, err)
		}
	}
	return &Detector{cfg: cfg, logger: log.Component("facemesh")}, nil
}

// Factory returns a landmark.Factory building FaceMesh detectors with the
// pipeline's confidence settings.
func Factory(cfg Config) landmark.Factory {
	return func(ctx context.Context, lc landmark.Config) (landmark.Detector, error) {
		cfg.MaxFaces = lc.MaxFaces
		cfg.MinDetectionConfidence = lc.MinDetectionConfidence
		cfg.MinTrackingConfidence = lc.MinTrackingConfidence
		return New(cfg)
	}
}

// OnResults registers the result callback.
func (d *Detector) OnResults(fn landmark.ResultFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// Send encodes frame, runs it through the service and delivers the result.
// A cancelled call kills the process; the next Send starts a new one.
func (d *Detector) Send(ctx context.Context, frame image.Image) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(d.cfg.JPEGQuality)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return landmark.ErrClosed
	}
	if err := d.ensureStarted(); err != nil {
		return err
	}

	line, err := d.roundTrip(ctx, buf.Bytes())
	if err != nil {
		d.shutdown()
		return err
	}

	res, err := parseResponse(line)
	if err != nil {
		return err
	}
	if d.callback != nil {
		d.callback(res)
	}
	return nil
}

type readResult struct {
	line []byte
	err  error
}

func (d *Detector) roundTrip(ctx context.Context, frame []byte) ([]byte, error) {
	if err := writeFrame(d.stdin, frame); err != nil {
		return nil, err
	}

	stdout := d.stdout
	done := make(chan readResult, 1)
	go func() {
		line, err := stdout.ReadBytes('\n')
		done <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("read response: %w", r.err)
		}
		return r.line, nil
	}
}

func (d *Detector) ensureStarted() error {
	if d.started {
		return nil
	}

	argv := d.cfg.argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), d.cfg.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start facemesh service: %w", err)
	}
	go d.logStderr(stderr)

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	if d.restarts > 0 {
		d.logger.Info("facemesh service restarted", "pid", cmd.Process.Pid, "restarts", d.restarts)
	} else {
		d.logger.Info("facemesh service started", "pid", cmd.Process.Pid)
	}
	d.restarts++
	return nil
}

func (d *Detector) logStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		d.logger.Debug("facemesh service", "stderr", sc.Text())
	}
}

func (d *Detector) shutdown() error {
	if !d.started {
		return nil
	}
	d.started = false

	d.stdin.Close()
	// Unblock a reader stuck on a hung process.
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	err := d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	// Killed processes report an exit error.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// Running reports whether the helper process is up.
func (d *Detector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Close stops the helper process.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return d.shutdown()
}
