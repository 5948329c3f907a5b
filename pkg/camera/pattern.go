package camera

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/teslashibe/go-facefilter/pkg/media"
)

// Pattern is a synthetic camera: a cartoon face drifting across a gradient.
type Pattern struct {
	cfg    Config
	stream *media.Stream
	video  *media.FrameTrack
	audio  *Silence

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// OpenPattern starts a synthetic source. It satisfies Opener.
func OpenPattern(ctx context.Context, cfg Config) (Source, error) {
	return NewPattern(cfg), nil
}

// NewPattern starts generating frames at cfg's size and rate.
func NewPattern(cfg Config) *Pattern {
	p := &Pattern{cfg: cfg}
	p.video = media.NewFrameTrack("pattern", &media.Settings{
		Width:     cfg.Width,
		Height:    cfg.Height,
		FrameRate: float64(cfg.Framerate),
	})
	tracks := []media.Track{p.video}
	if cfg.Audio {
		p.audio = NewSilence()
		tracks = append(tracks, p.audio.Track())
	}
	p.stream = media.NewStream(tracks...)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.runVideo(ctx)
	return p
}

// Stream returns the pattern stream.
func (p *Pattern) Stream() *media.Stream {
	return p.stream
}

func (p *Pattern) runVideo(ctx context.Context) {
	defer p.wg.Done()

	fps := p.cfg.Framerate
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for n := 0; ; n++ {
		p.video.Push(PatternFrame(p.cfg.Width, p.cfg.Height, n))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close stops the generators and ends the tracks.
func (p *Pattern) Close() error {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		if p.audio != nil {
			p.audio.Close()
		}
		p.stream.Stop()
	})
	return nil
}

// PatternFrame draws frame n of the synthetic feed.
func PatternFrame(w, h, n int) image.Image {
	dc := gg.NewContext(w, h)

	grad := gg.NewLinearGradient(0, 0, float64(w), float64(h))
	grad.AddColorStop(0, color.RGBA{0x20, 0x30, 0x50, 0xff})
	grad.AddColorStop(1, color.RGBA{0x50, 0x30, 0x60, 0xff})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	fw, fh := float64(w), float64(h)
	r := math.Min(fw, fh) * 0.25
	cx := fw/2 + math.Sin(float64(n)/30)*fw*0.15
	cy := fh / 2

	dc.SetRGB255(0xf2, 0xc6, 0x9b)
	dc.DrawEllipse(cx, cy, r*0.8, r)
	dc.Fill()

	dc.SetRGB255(0x20, 0x20, 0x20)
	dc.DrawCircle(cx-r*0.32, cy-r*0.2, r*0.09)
	dc.DrawCircle(cx+r*0.32, cy-r*0.2, r*0.09)
	dc.Fill()

	dc.SetRGB255(0xa0, 0x30, 0x30)
	dc.SetLineWidth(r * 0.05)
	dc.DrawArc(cx, cy+r*0.25, r*0.35, 0.15*math.Pi, 0.85*math.Pi)
	dc.Stroke()

	return dc.Image()
}
