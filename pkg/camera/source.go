package camera

import (
	"context"

	"github.com/teslashibe/go-facefilter/pkg/media"
)

// Source is an open camera.
type Source interface {
	// Stream returns the camera stream. It is stable for the source's
	// lifetime.
	Stream() *media.Stream

	// Close stops capture and ends every track.
	Close() error
}

// Opener opens a source for cfg.
type Opener func(ctx context.Context, cfg Config) (Source, error)
