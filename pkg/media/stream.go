// Package media models camera-like streams: a Stream groups one video track
// and any number of audio tracks. It also provides the hidden decode surface
// that reads a source stream and the capture that turns a render surface
// back into a stream.
package media

import (
	"sync"

	"github.com/google/uuid"
)

// Stream is a set of tracks with a stable identity. Two streams are the same
// stream only if they are the same pointer.
type Stream struct {
	id string

	mu     sync.RWMutex
	tracks []Track
}

// NewStream creates a stream holding the given tracks.
func NewStream(tracks ...Track) *Stream {
	return &Stream{
		id:     uuid.NewString(),
		tracks: append([]Track(nil), tracks...),
	}
}

// ID returns the stream identifier.
func (s *Stream) ID() string {
	return s.id
}

// AddTrack appends a track.
func (s *Stream) AddTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

// Tracks returns all tracks.
func (s *Stream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Track(nil), s.tracks...)
}

// VideoTracks returns the video tracks in insertion order.
func (s *Stream) VideoTracks() []VideoTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []VideoTrack
	for _, t := range s.tracks {
		if v, ok := t.(VideoTrack); ok && t.Kind() == KindVideo {
			out = append(out, v)
		}
	}
	return out
}

// AudioTracks returns the audio tracks in insertion order.
func (s *Stream) AudioTracks() []AudioTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AudioTrack
	for _, t := range s.tracks {
		if a, ok := t.(AudioTrack); ok && t.Kind() == KindAudio {
			out = append(out, a)
		}
	}
	return out
}

// Video returns the first video track.
func (s *Stream) Video() (VideoTrack, bool) {
	v := s.VideoTracks()
	if len(v) == 0 {
		return nil, false
	}
	return v[0], true
}

// Stop ends every track.
func (s *Stream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
