package media

import (
	"image"
	"time"
)

// FrameSource is anything that can produce a snapshot of its pixels.
type FrameSource interface {
	Size() (w, h int)
	Snapshot() *image.RGBA
}

// DefaultCaptureRate is the output frame rate of CaptureStream.
const DefaultCaptureRate = 30

// CaptureStream starts capturing src at fps frames per second and returns
// the resulting video track. Ticks with no subscriber skip the snapshot.
// Capture stops when the track is stopped.
func CaptureStream(src FrameSource, fps float64) *FrameTrack {
	if fps <= 0 {
		fps = DefaultCaptureRate
	}
	w, h := src.Size()
	track := NewFrameTrack("canvas", &Settings{Width: w, Height: h, FrameRate: fps})

	interval := time.Duration(float64(time.Second) / fps)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-track.Done():
				return
			case <-ticker.C:
				if track.Subscribers() == 0 {
					continue
				}
				track.Push(src.Snapshot())
			}
		}
	}()
	return track
}
