package landmark

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-facefilter/internal/log"
)

// Adapter turns a callback-based detector into a pollable last-known value.
//
// The last result is overwritten by every callback and never cleared by
// reads. A failed submission marks the adapter not ready; Restart restores it.
type Adapter struct {
	detector Detector
	logger   *slog.Logger

	ready atomic.Bool
	busy  atomic.Bool
	last  atomic.Pointer[Set]

	submissions atomic.Int64
	failures    atomic.Int64
}

// NewAdapter builds a detector with the factory and wires its callback.
// Construction failures are returned; without a detector no filter works.
func NewAdapter(ctx context.Context, factory Factory, cfg Config, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = log.Component("landmarks")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: invalid config: %v", ErrDetectorUnavailable, errs)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: no detector factory", ErrDetectorUnavailable)
	}

	det, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorUnavailable, err)
	}

	a := &Adapter{detector: det, logger: logger}
	det.OnResults(a.handleResults)
	a.ready.Store(true)
	return a, nil
}

func (a *Adapter) handleResults(r Result) {
	a.last.Store(r.Face())
}

// Submit sends one frame to the detector. Errors are logged and swallowed;
// the adapter then reports not ready until Restart.
func (a *Adapter) Submit(ctx context.Context, frame image.Image) {
	if !a.ready.Load() {
		return
	}
	a.submissions.Add(1)

	if err := a.detector.Send(ctx, frame); err != nil {
		a.failures.Add(1)
		a.ready.Store(false)
		a.logger.Error("landmark detection failed, detector marked not ready", "error", err)
	}
}

// Acquire claims the single in-flight slot. It reports false while another
// submission holds it.
func (a *Adapter) Acquire() bool {
	return a.busy.CompareAndSwap(false, true)
}

// Release frees the slot taken by Acquire.
func (a *Adapter) Release() {
	a.busy.Store(false)
}

// Busy reports whether a submission holds the slot.
func (a *Adapter) Busy() bool {
	return a.busy.Load()
}

// Latest returns the most recent landmark set, or nil.
func (a *Adapter) Latest() *Set {
	return a.last.Load()
}

// Ready reports whether submissions are accepted.
func (a *Adapter) Ready() bool {
	return a.ready.Load()
}

// Restart marks a faulted adapter ready again.
func (a *Adapter) Restart() {
	if !a.ready.Swap(true) {
		a.logger.Info("landmark detector restarted")
	}
}

// ClearLatest drops the cached landmark set.
func (a *Adapter) ClearLatest() {
	a.last.Store(nil)
}

// Stats returns submission counters.
func (a *Adapter) Stats() (submissions, failures int64) {
	return a.submissions.Load(), a.failures.Load()
}

// Close releases the detector. The adapter is not usable afterwards.
func (a *Adapter) Close() error {
	a.ready.Store(false)
	a.last.Store(nil)
	return a.detector.Close()
}
