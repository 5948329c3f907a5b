package media

import (
	"image"
	"sync"

	"github.com/google/uuid"
)

// Kind distinguishes audio from video tracks.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Settings are the negotiated properties of a video track.
type Settings struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
}

// Track is a single media track inside a Stream.
type Track interface {
	ID() string
	Kind() Kind
	Label() string

	// Stop ends the track. Subscribers see their channel closed.
	Stop()
	Ended() bool
}

// VideoTrack delivers decoded frames.
type VideoTrack interface {
	Track

	// Settings returns the negotiated settings, if known.
	Settings() (Settings, bool)

	Subscribe() (*Subscription[image.Image], error)
}

// AudioChunk is a block of interleaved PCM16 samples.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// AudioTrack delivers audio chunks and can be cloned onto other streams.
type AudioTrack interface {
	Track

	// Clone returns an independent track carrying the same audio. Stopping
	// the clone leaves the original running.
	Clone() AudioTrack

	Subscribe() (*Subscription[AudioChunk], error)
}

// FrameTrack is a VideoTrack fed by Push.
type FrameTrack struct {
	id    string
	label string
	b     *broadcaster[image.Image]

	mu       sync.RWMutex
	settings Settings
	known    bool
}

// NewFrameTrack creates a video track. A nil settings pointer means the
// source never negotiated dimensions.
func NewFrameTrack(label string, settings *Settings) *FrameTrack {
	t := &FrameTrack{
		id:    uuid.NewString(),
		label: label,
		b:     newBroadcaster[image.Image](1),
	}
	if settings != nil {
		t.settings = *settings
		t.known = true
	}
	return t
}

func (t *FrameTrack) ID() string    { return t.id }
func (t *FrameTrack) Kind() Kind    { return KindVideo }
func (t *FrameTrack) Label() string { return t.label }
func (t *FrameTrack) Stop()         { t.b.end() }
func (t *FrameTrack) Ended() bool   { return t.b.isEnded() }

// Done is closed when the track ends.
func (t *FrameTrack) Done() <-chan struct{} {
	return t.b.done
}

// Settings returns the negotiated settings, if known.
func (t *FrameTrack) Settings() (Settings, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings, t.known
}

// SetSettings updates the negotiated settings.
func (t *FrameTrack) SetSettings(s Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s
	t.known = true
}

// Subscribe returns a single-slot frame mailbox.
func (t *FrameTrack) Subscribe() (*Subscription[image.Image], error) {
	return t.b.subscribe()
}

// Push publishes a frame. Frames must not be modified after Push.
func (t *FrameTrack) Push(frame image.Image) {
	t.b.publish(frame)
}

// Subscribers returns the number of active subscriptions.
func (t *FrameTrack) Subscribers() int {
	return t.b.subscribers()
}

// audioQueueDepth is how many chunks a slow audio consumer may lag behind.
const audioQueueDepth = 32

// PCMTrack is an AudioTrack fed by Push.
type PCMTrack struct {
	id    string
	label string
	b     *broadcaster[AudioChunk]
}

// NewPCMTrack creates an audio track.
func NewPCMTrack(label string) *PCMTrack {
	return &PCMTrack{
		id:    uuid.NewString(),
		label: label,
		b:     newBroadcaster[AudioChunk](audioQueueDepth),
	}
}

func (t *PCMTrack) ID() string    { return t.id }
func (t *PCMTrack) Kind() Kind    { return KindAudio }
func (t *PCMTrack) Label() string { return t.label }
func (t *PCMTrack) Stop()         { t.b.end() }
func (t *PCMTrack) Ended() bool   { return t.b.isEnded() }

// Done is closed when the track ends.
func (t *PCMTrack) Done() <-chan struct{} {
	return t.b.done
}

// Subscribe returns a buffered chunk subscription.
func (t *PCMTrack) Subscribe() (*Subscription[AudioChunk], error) {
	return t.b.subscribe()
}

// Push publishes a chunk.
func (t *PCMTrack) Push(chunk AudioChunk) {
	t.b.publish(chunk)
}

// Clone returns a new track relaying this track's audio. The clone ends when
// either it or the original is stopped.
func (t *PCMTrack) Clone() AudioTrack {
	clone := NewPCMTrack(t.label)

	sub, err := t.Subscribe()
	if err != nil {
		clone.Stop()
		return clone
	}

	go func() {
		defer clone.Stop()
		for {
			select {
			case chunk, ok := <-sub.C():
				if !ok {
					return
				}
				clone.Push(chunk)
			case <-clone.b.done:
				sub.Close()
				return
			}
		}
	}()
	return clone
}
