package facemesh

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

// maxFrameSize bounds one request payload.
const maxFrameSize = 32 << 20

// writeFrame writes a 4-byte big-endian length followed by the JPEG bytes.
func writeFrame(w io.Writer, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("empty frame")
	}
	if len(jpeg) > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", len(jpeg))
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(jpeg)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed payload. Used by the test service.
func readFrame(r io.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(length[:])
	if n == 0 || n > maxFrameSize {
		return nil, fmt.Errorf("bad frame length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// response is one JSON line from the service.
type response struct {
	Faces []jsonFace `json:"faces"`
	Error string     `json:"error,omitempty"`
}

type jsonFace struct {
	Points []jsonPoint `json:"points"`
	Score  float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// parseResponse decodes a response line into a detector result.
func parseResponse(line []byte) (landmark.Result, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return landmark.Result{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return landmark.Result{}, fmt.Errorf("facemesh service: %s", resp.Error)
	}

	var res landmark.Result
	for _, f := range resp.Faces {
		if len(f.Points) == 0 {
			continue
		}
		points := make([]landmark.Point, len(f.Points))
		for i, p := range f.Points {
			points[i] = landmark.Point{X: p.X, Y: p.Y}
		}
		res.Faces = append(res.Faces, landmark.NewSet(points))
	}
	return res, nil
}
