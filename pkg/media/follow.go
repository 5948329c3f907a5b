package media

import (
	"context"
	"image"
	"time"
)

// followRecheck is how often Follow re-reads the current stream.
const followRecheck = 200 * time.Millisecond

// Follow calls fn with frames from the video track of whatever stream
// current returns, re-subscribing when the stream identity changes. At most
// fps frames per second are delivered; extra frames are dropped. Follow
// returns when ctx is done.
func Follow(ctx context.Context, current func() *Stream, fps float64, fn func(image.Image)) {
	var minGap time.Duration
	if fps > 0 {
		minGap = time.Duration(float64(time.Second) / fps)
	}

	recheck := time.NewTicker(followRecheck)
	defer recheck.Stop()

	var (
		stream *Stream
		sub    *Subscription[image.Image]
		last   time.Time
	)
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()

	resubscribe := func() {
		s := current()
		if s == stream && sub != nil {
			return
		}
		if sub != nil {
			sub.Close()
			sub = nil
		}
		stream = s
		if s == nil {
			return
		}
		if v, ok := s.Video(); ok {
			if next, err := v.Subscribe(); err == nil {
				sub = next
			}
		}
	}
	resubscribe()

	for {
		var frames <-chan image.Image
		if sub != nil {
			frames = sub.C()
		}

		select {
		case <-ctx.Done():
			return
		case <-recheck.C:
			resubscribe()
		case frame, ok := <-frames:
			if !ok {
				// Track ended; wait for the owner to publish a new stream.
				sub.Close()
				sub = nil
				stream = nil
				continue
			}
			now := time.Now()
			if minGap > 0 && now.Sub(last) < minGap {
				continue
			}
			last = now
			fn(frame)
		}
	}
}
