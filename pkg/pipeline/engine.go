// Package pipeline turns a camera stream into a filtered stream: it decodes
// the source, paints frames onto a canvas, feeds frames to a landmark
// detector one at a time, composites the active filter's overlays and
// captures the canvas as a new stream.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/asset"
	"github.com/teslashibe/go-facefilter/pkg/canvas"
	"github.com/teslashibe/go-facefilter/pkg/filter"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
	"github.com/teslashibe/go-facefilter/pkg/media"
)

// Engine owns one source stream, its canvas and its output stream.
//
// Engines are independent; create one per view. Destroy returns an engine
// to the state of a freshly constructed one.
type Engine struct {
	cfg     Config
	factory landmark.Factory
	clock   FrameClock
	assets  *asset.Cache
	canvas  *canvas.Canvas
	decoder *media.Decoder
	policy  media.AutoplayPolicy
	logger  *slog.Logger

	mu          sync.Mutex
	initialized bool
	source      *media.Stream
	output      *media.Stream
	capture     *media.FrameTrack
	audio       []media.AudioTrack
	current     *filter.Filter
	pending     *filter.Filter
	detector    *landmark.Adapter
	processing  bool
	loopGen     uint64
	cancelTick  func()
	epoch       uint64 // bumped by Destroy

	stats counters
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the display clock.
func WithClock(c FrameClock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithAssetCache shares an asset cache.
func WithAssetCache(c *asset.Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.assets = c
		}
	}
}

// WithAutoplayPolicy sets the decoder playback policy.
func WithAutoplayPolicy(p media.AutoplayPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine. The detector is built by factory on the first
// Initialize.
func New(cfg Config, factory landmark.Factory, opts ...Option) (*Engine, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid pipeline config: %v", errs)
	}

	e := &Engine{
		cfg:     cfg,
		factory: factory,
		clock:   NewDisplayClock(cfg.RefreshRate),
		assets:  asset.NewCache(),
		canvas:  canvas.New(canvas.DefaultWidth, canvas.DefaultHeight),
		logger:  log.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.decoder = media.NewDecoder(e.policy, e.logger.With("part", "decoder"))
	return e, nil
}

// Initialize binds the engine to src. Calling it again with the same stream
// is a no-op; a different stream hot-swaps the source.
func (e *Engine) Initialize(ctx context.Context, src *media.Stream) error {
	if src == nil {
		return ErrNoSource
	}

	e.mu.Lock()
	if e.initialized {
		defer e.mu.Unlock()
		if e.source == src {
			return nil
		}
		return e.updateStreamLocked(ctx, src)
	}

	track, ok := src.Video()
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("initialize: %w", media.ErrNoVideoTrack)
	}
	if err := e.decoder.Bind(src); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("initialize: %w", err)
	}
	w, h := trackSize(track)
	e.canvas.Resize(w, h)
	e.startPlaybackLocked(ctx)

	if e.detector == nil {
		det, err := landmark.NewAdapter(ctx, e.factory, e.cfg.Detector, e.logger.With("part", "landmarks"))
		if err != nil {
			e.decoder.Release()
			e.mu.Unlock()
			return fmt.Errorf("initialize: %w", err)
		}
		e.detector = det
	}

	e.source = src
	e.buildOutputLocked()
	e.initialized = true

	cw, ch := e.canvas.Size()
	e.logger.Info("pipeline initialized", "stream", src.ID(), "width", cw, "height", ch)

	pending := e.pending
	e.pending = nil
	if pending == nil && e.current != nil {
		e.startLoopLocked()
	}
	e.mu.Unlock()

	if pending != nil {
		return e.applyFilter(ctx, pending)
	}
	return nil
}

// updateStreamLocked swaps the source without losing filter state.
func (e *Engine) updateStreamLocked(ctx context.Context, src *media.Stream) error {
	track, ok := src.Video()
	if !ok {
		return fmt.Errorf("update stream: %w", media.ErrNoVideoTrack)
	}

	e.stopLoopLocked()
	if err := e.decoder.Bind(src); err != nil {
		return fmt.Errorf("update stream: %w", err)
	}
	if w, h := trackSize(track); e.canvas.Resize(w, h) {
		e.logger.Debug("canvas resized", "width", w, "height", h)
	}
	e.startPlaybackLocked(ctx)

	e.teardownOutputLocked()
	e.source = src
	e.buildOutputLocked()

	if e.current != nil {
		e.startLoopLocked()
	}
	e.logger.Info("source stream swapped", "stream", src.ID(), "output", e.output.ID())
	return nil
}

// startPlaybackLocked starts decoding, retrying once muted. A second failure
// leaves the engine initialized but without frames.
func (e *Engine) startPlaybackLocked(ctx context.Context) {
	err := e.decoder.Play(ctx, media.PlayOptions{})
	if err == nil {
		return
	}
	e.logger.Warn("playback failed, retrying muted", "error", err)

	if err := e.decoder.Play(ctx, media.PlayOptions{Muted: true}); err != nil {
		e.logger.Error("muted playback failed, passing source through", "error", err)
	}
}

func (e *Engine) buildOutputLocked() {
	e.capture = media.CaptureStream(e.canvas, e.cfg.CaptureRate)
	tracks := []media.Track{e.capture}
	e.audio = nil
	for _, a := range e.source.AudioTracks() {
		clone := a.Clone()
		e.audio = append(e.audio, clone)
		tracks = append(tracks, clone)
	}
	e.output = media.NewStream(tracks...)
}

func (e *Engine) teardownOutputLocked() {
	if e.capture != nil {
		e.capture.Stop()
		e.capture = nil
	}
	for _, a := range e.audio {
		a.Stop()
	}
	e.audio = nil
	e.output = nil
}

// LoadFilter activates f. Before Initialize the filter is held as pending
// and applied once the engine is initialized.
func (e *Engine) LoadFilter(ctx context.Context, f *filter.Filter) error {
	if f == nil {
		return fmt.Errorf("load filter: %w", filter.ErrInvalidFilter)
	}

	e.mu.Lock()
	if !e.initialized {
		e.pending = f
		e.current = f
		e.mu.Unlock()
		e.logger.Debug("filter pending until initialized", "filter", f.ID)
		return nil
	}
	// Same definition only: a reloaded filter keeps its id but is a new value.
	if e.current == f {
		if !e.processing {
			e.startLoopLocked()
		}
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	return e.applyFilter(ctx, f)
}

func (e *Engine) applyFilter(ctx context.Context, f *filter.Filter) error {
	e.mu.Lock()
	e.stopLoopLocked()
	e.current = f
	epoch := e.epoch
	e.mu.Unlock()

	failures := e.assets.LoadAll(ctx, f.Sources())

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.epoch != epoch {
		return fmt.Errorf("load filter %s: %w", f.ID, ErrDestroyed)
	}
	if e.current != f {
		// Superseded while assets were loading.
		return nil
	}
	if e.initialized {
		e.startLoopLocked()
	}
	e.logger.Info("filter loaded", "filter", f.ID, "overlays", len(f.Overlays), "failed_assets", len(failures))
	return nil
}

// UnloadFilter stops rendering and clears the current and pending filter.
// Cached assets are kept.
func (e *Engine) UnloadFilter() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	e.current = nil
	e.pending = nil
}

// RestartDetector marks a faulted detector ready again.
func (e *Engine) RestartDetector() {
	e.mu.Lock()
	det := e.detector
	e.mu.Unlock()

	if det != nil {
		det.Restart()
	}
}

// Destroy tears everything down. It is the only path that releases the
// detector.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()

	var err error
	if e.detector != nil {
		err = multierr.Append(err, e.detector.Close())
		e.detector = nil
	}
	e.decoder.Release()
	e.teardownOutputLocked()
	e.assets.Clear()
	e.canvas.Resize(canvas.DefaultWidth, canvas.DefaultHeight)
	e.canvas.Paint(func(p *canvas.Painter) { p.Clear(image.Transparent) })

	e.source = nil
	e.current = nil
	e.pending = nil
	e.initialized = false
	e.epoch++
	e.stats.reset()

	if err != nil {
		e.logger.Warn("pipeline destroyed with errors", "error", err)
		return fmt.Errorf("destroy: %w", err)
	}
	e.logger.Info("pipeline destroyed")
	return nil
}

// FilteredStream returns the output stream while a filter is active, and
// the source stream otherwise.
func (e *Engine) FilteredStream() *media.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized && e.current != nil && e.output != nil {
		return e.output
	}
	return e.source
}

// OriginalStream returns the source stream.
func (e *Engine) OriginalStream() *media.Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// IsReady reports whether the engine is initialized with a ready detector.
func (e *Engine) IsReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized && e.detector != nil && e.detector.Ready()
}

// HasFilter reports whether a filter is current or pending.
func (e *Engine) HasFilter() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// IsActive reports whether the render loop is running.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processing
}

// CurrentFilter returns the current filter, or nil.
func (e *Engine) CurrentFilter() *filter.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Snapshot returns what FilteredStream currently shows: the canvas while a
// filter is rendering, the latest decoded frame otherwise.
func (e *Engine) Snapshot() (image.Image, bool) {
	if e.IsActive() {
		return e.canvas.Snapshot(), true
	}
	return e.decoder.Frame()
}

func trackSize(t media.VideoTrack) (int, int) {
	s, ok := t.Settings()
	if !ok || s.Width <= 0 || s.Height <= 0 {
		return canvas.DefaultWidth, canvas.DefaultHeight
	}
	return s.Width, s.Height
}
