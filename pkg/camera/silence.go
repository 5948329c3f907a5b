package camera

import (
	"sync"
	"time"

	"github.com/teslashibe/go-facefilter/pkg/media"
)

// Audio format of the silent track.
const (
	audioSampleRate = 48000
	audioChunk      = 20 * time.Millisecond
)

// Silence feeds an audio track with 20ms chunks of mono silence. Capture
// devices have no audio path; this keeps the stream shape of a camera with
// a microphone.
type Silence struct {
	track *media.PCMTrack
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewSilence starts the generator.
func NewSilence() *Silence {
	s := &Silence{
		track: media.NewPCMTrack("microphone"),
		stop:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Track returns the audio track.
func (s *Silence) Track() *media.PCMTrack {
	return s.track
}

func (s *Silence) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(audioChunk)
	defer ticker.Stop()
	samples := int(audioSampleRate * audioChunk / time.Second)

	for {
		select {
		case <-s.stop:
			return
		case <-s.track.Done():
			return
		case <-ticker.C:
			s.track.Push(media.AudioChunk{
				Samples:    make([]int16, samples),
				SampleRate: audioSampleRate,
				Channels:   1,
			})
		}
	}
}

// Close stops the generator and ends the track.
func (s *Silence) Close() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.track.Stop()
	})
}
