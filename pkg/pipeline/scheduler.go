package pipeline

import (
	"context"
	"image"

	"github.com/teslashibe/go-facefilter/pkg/canvas"
	"github.com/teslashibe/go-facefilter/pkg/compositor"
	"github.com/teslashibe/go-facefilter/pkg/filter"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

func (e *Engine) startLoopLocked() {
	if e.processing {
		return
	}
	e.processing = true
	e.loopGen++
	gen := e.loopGen
	e.cancelTick = e.clock.RequestFrame(func() { e.tick(gen) })
}

func (e *Engine) stopLoopLocked() {
	if !e.processing {
		return
	}
	e.processing = false
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
}

// tick renders one display frame and schedules the next. A tick from a
// stopped or restarted loop does nothing.
func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if !e.processing || gen != e.loopGen {
		e.mu.Unlock()
		return
	}
	f := e.current
	det := e.detector
	e.mu.Unlock()

	e.stats.ticks.Add(1)
	e.render(f, det)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processing && gen == e.loopGen {
		e.cancelTick = e.clock.RequestFrame(func() { e.tick(gen) })
	}
}

func (e *Engine) render(f *filter.Filter, det *landmark.Adapter) {
	frame, ok := e.decoder.Frame()
	if !ok {
		return
	}

	var set *landmark.Set
	if det != nil {
		set = det.Latest()
	}

	e.canvas.Paint(func(p *canvas.Painter) {
		p.DrawFrame(frame)
		if f != nil && set != nil {
			if compositor.Composite(p, f, e.assets, set) > 0 {
				e.stats.composites.Add(1)
			}
		}
	})
	e.stats.framesDrawn.Add(1)

	if f != nil && det != nil && det.Ready() {
		e.submit(det, frame)
	}
}

// submit hands frame to the detector unless a call is outstanding on it.
// Frames are dropped, never queued. The slot lives on the adapter, so a call
// left running on a destroyed detector does not block its replacement.
func (e *Engine) submit(det *landmark.Adapter, frame image.Image) {
	if !det.Acquire() {
		e.stats.skipped.Add(1)
		return
	}
	e.stats.submissions.Add(1)

	go func() {
		defer det.Release()

		ctx := context.Background()
		if e.cfg.DetectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.cfg.DetectTimeout)
			defer cancel()
		}
		det.Submit(ctx, frame)
	}()
}
