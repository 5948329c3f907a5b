package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Data channel messages carry one chunk of a JPEG frame behind an 8-byte
// header: frame sequence (uint32), chunk index (uint16), chunk count
// (uint16), all big-endian.
const (
	headerSize = 8

	// DefaultChunkSize keeps messages under the SCTP limits browsers honor.
	DefaultChunkSize = 16 * 1024
)

// ErrMalformedChunk is returned for messages that cannot be a frame chunk.
var ErrMalformedChunk = errors.New("malformed frame chunk")

// Packetize splits a frame into data channel messages.
func Packetize(seq uint32, frame []byte, chunkSize int) ([][]byte, error) {
	payload := chunkSize - headerSize
	if payload <= 0 {
		return nil, fmt.Errorf("chunk size %d too small", chunkSize)
	}
	count := (len(frame) + payload - 1) / payload
	if count == 0 {
		count = 1
	}
	if count > 0xffff {
		return nil, fmt.Errorf("frame of %d bytes needs %d chunks", len(frame), count)
	}

	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * payload
		end := min(start+payload, len(frame))

		msg := make([]byte, headerSize+end-start)
		binary.BigEndian.PutUint32(msg[0:4], seq)
		binary.BigEndian.PutUint16(msg[4:6], uint16(i))
		binary.BigEndian.PutUint16(msg[6:8], uint16(count))
		copy(msg[headerSize:], frame[start:end])
		out = append(out, msg)
	}
	return out, nil
}

// Reassembler rebuilds frames from chunks. Chunks of an older frame still
// in progress are discarded when a newer frame starts.
type Reassembler struct {
	seq    uint32
	active bool
	count  int
	parts  [][]byte
	have   int
}

// Add consumes one message and returns a completed frame, if any.
func (r *Reassembler) Add(msg []byte) ([]byte, bool, error) {
	if len(msg) < headerSize {
		return nil, false, ErrMalformedChunk
	}
	seq := binary.BigEndian.Uint32(msg[0:4])
	idx := int(binary.BigEndian.Uint16(msg[4:6]))
	count := int(binary.BigEndian.Uint16(msg[6:8]))
	if count == 0 || idx >= count {
		return nil, false, ErrMalformedChunk
	}

	if !r.active || seq != r.seq {
		if r.active && seq < r.seq {
			// Late chunk of a frame already abandoned.
			return nil, false, nil
		}
		r.seq = seq
		r.active = true
		r.count = count
		r.parts = make([][]byte, count)
		r.have = 0
	}
	if count != r.count {
		return nil, false, ErrMalformedChunk
	}
	if r.parts[idx] == nil {
		r.parts[idx] = msg[headerSize:]
		r.have++
	}
	if r.have < r.count {
		return nil, false, nil
	}

	var size int
	for _, p := range r.parts {
		size += len(p)
	}
	frame := make([]byte, 0, size)
	for _, p := range r.parts {
		frame = append(frame, p...)
	}
	r.active = false
	r.parts = nil
	return frame, true, nil
}
