package media

import "errors"

var (
	// ErrNoVideoTrack is returned when a stream carries no video track.
	ErrNoVideoTrack = errors.New("media: stream has no video track")

	// ErrTrackEnded is returned when subscribing to a stopped track.
	ErrTrackEnded = errors.New("media: track ended")

	// ErrNotBound is returned when playing a decoder with no source.
	ErrNotBound = errors.New("media: decoder has no source")

	// ErrPlaybackBlocked is returned when the autoplay policy refuses playback.
	ErrPlaybackBlocked = errors.New("media: playback blocked")
)
