package pipeline

import "sync/atomic"

// Stats are render loop counters since construction or the last Destroy.
type Stats struct {
	Ticks              int64 `json:"ticks"`
	FramesDrawn        int64 `json:"frames_drawn"`
	Composites         int64 `json:"composites"`
	Submissions        int64 `json:"submissions"`
	SkippedSubmissions int64 `json:"skipped_submissions"`
	DetectorFailures   int64 `json:"detector_failures"`
	FramesDecoded      int64 `json:"frames_decoded"`
	CanvasWidth        int   `json:"canvas_width"`
	CanvasHeight       int   `json:"canvas_height"`
}

type counters struct {
	ticks       atomic.Int64
	framesDrawn atomic.Int64
	composites  atomic.Int64
	submissions atomic.Int64
	skipped     atomic.Int64
}

func (c *counters) reset() {
	c.ticks.Store(0)
	c.framesDrawn.Store(0)
	c.composites.Store(0)
	c.submissions.Store(0)
	c.skipped.Store(0)
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	det := e.detector
	e.mu.Unlock()

	s := Stats{
		Ticks:              e.stats.ticks.Load(),
		FramesDrawn:        e.stats.framesDrawn.Load(),
		Composites:         e.stats.composites.Load(),
		Submissions:        e.stats.submissions.Load(),
		SkippedSubmissions: e.stats.skipped.Load(),
		FramesDecoded:      e.decoder.FramesDecoded(),
	}
	if det != nil {
		_, s.DetectorFailures = det.Stats()
	}
	s.CanvasWidth, s.CanvasHeight = e.canvas.Size()
	return s
}
