package media

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-facefilter/internal/log"
)

// PlayOptions controls decoder playback.
type PlayOptions struct {
	Muted bool
}

// AutoplayPolicy decides whether playback may start. Hosts that only allow
// muted autoplay reject unmuted requests.
type AutoplayPolicy func(opts PlayOptions) error

// AllowAll is the default policy.
func AllowAll(PlayOptions) error { return nil }

// MutedOnly refuses unmuted playback.
func MutedOnly(opts PlayOptions) error {
	if !opts.Muted {
		return fmt.Errorf("%w: unmuted autoplay not allowed", ErrPlaybackBlocked)
	}
	return nil
}

// Decoder is the hidden decode surface. It is bound to a source stream and,
// while playing, keeps the most recent frame of its video track.
type Decoder struct {
	policy AutoplayPolicy
	logger *slog.Logger

	mu      sync.Mutex
	source  *Stream
	track   VideoTrack
	sub     *Subscription[image.Image]
	muted   bool
	playing bool
	stop    chan struct{}
	wg      sync.WaitGroup

	latest atomic.Pointer[frameBox]
	frames atomic.Int64
}

type frameBox struct {
	img image.Image
}

// NewDecoder creates an unbound decoder. A nil policy allows all playback.
func NewDecoder(policy AutoplayPolicy, logger *slog.Logger) *Decoder {
	if policy == nil {
		policy = AllowAll
	}
	if logger == nil {
		logger = log.Component("decoder")
	}
	return &Decoder{policy: policy, logger: logger}
}

// Bind sets the decoder's source, stopping any current playback and
// discarding the buffered frame.
func (d *Decoder) Bind(s *Stream) error {
	track, ok := s.Video()
	if !ok {
		return ErrNoVideoTrack
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.source = s
	d.track = track
	d.latest.Store(nil)
	return nil
}

// Source returns the bound stream.
func (d *Decoder) Source() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// Play starts reading frames from the bound track.
func (d *Decoder) Play(ctx context.Context, opts PlayOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.track == nil {
		return ErrNotBound
	}
	if d.playing {
		return nil
	}
	if err := d.policy(opts); err != nil {
		return err
	}

	sub, err := d.track.Subscribe()
	if err != nil {
		return fmt.Errorf("play %s: %w", d.track.Label(), err)
	}

	d.sub = sub
	d.muted = opts.Muted
	d.playing = true
	d.stop = make(chan struct{})

	d.wg.Add(1)
	go d.pump(sub, d.stop)
	return nil
}

func (d *Decoder) pump(sub *Subscription[image.Image], stop <-chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case <-stop:
			return
		case frame, ok := <-sub.C():
			if !ok {
				d.logger.Debug("source track ended")
				return
			}
			d.latest.Store(&frameBox{img: frame})
			d.frames.Add(1)
		}
	}
}

// Frame returns the current frame. It reports false until the decoder has
// buffered enough data to draw.
func (d *Decoder) Frame() (image.Image, bool) {
	box := d.latest.Load()
	if box == nil || box.img == nil {
		return nil, false
	}
	return box.img, true
}

// Playing reports whether playback is running.
func (d *Decoder) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Muted reports whether playback was started muted.
func (d *Decoder) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// FramesDecoded returns how many frames were received since creation.
func (d *Decoder) FramesDecoded() int64 {
	return d.frames.Load()
}

// Release stops playback and drops the source binding.
func (d *Decoder) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.source = nil
	d.track = nil
	d.latest.Store(nil)
}

func (d *Decoder) stopLocked() {
	if !d.playing {
		return
	}
	close(d.stop)
	d.sub.Close()
	d.wg.Wait()
	d.sub = nil
	d.playing = false
}
