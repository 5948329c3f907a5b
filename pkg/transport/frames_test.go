package transport

import (
	"bytes"
	"errors"
	"testing"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestPacketize_Chunks(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		chunk int
		want  int
	}{
		{"empty", 0, 64, 1},
		{"single", 10, 64, 1},
		{"exact", 56, 64, 1},
		{"split", 57, 64, 2},
		{"many", 1000, 64, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := Packetize(7, payload(tt.size), tt.chunk)
			if err != nil {
				t.Fatalf("Packetize: %v", err)
			}
			if len(msgs) != tt.want {
				t.Errorf("chunks: got %d, want %d", len(msgs), tt.want)
			}
			for i, m := range msgs {
				if len(m) > tt.chunk {
					t.Errorf("chunk %d: got %d bytes, limit %d", i, len(m), tt.chunk)
				}
			}
		})
	}
}

func TestPacketize_ChunkTooSmall(t *testing.T) {
	if _, err := Packetize(0, payload(10), headerSize); err == nil {
		t.Error("expected error for chunk size equal to header")
	}
}

func TestReassembler_RoundTripOutOfOrder(t *testing.T) {
	data := payload(500)
	msgs, err := Packetize(3, data, 100)
	if err != nil {
		t.Fatalf("Packetize: %v", err)
	}

	var r Reassembler
	order := []int{2, 0, 4, 1, 3, 5}
	var got []byte
	for n, i := range order {
		frame, done, err := r.Add(msgs[i])
		if err != nil {
			t.Fatalf("Add chunk %d: %v", i, err)
		}
		if done != (n == len(order)-1) {
			t.Fatalf("Add chunk %d: done = %v", i, done)
		}
		if done {
			got = frame
		}
	}
	if !bytes.Equal(got, data) {
		t.Errorf("reassembled frame differs (%d bytes, want %d)", len(got), len(data))
	}
}

func TestReassembler_NewerFrameAbandonsOlder(t *testing.T) {
	old, _ := Packetize(1, payload(300), 100)
	cur, _ := Packetize(2, payload(50), 100)

	var r Reassembler
	if _, done, _ := r.Add(old[0]); done {
		t.Fatal("first chunk completed a frame")
	}
	frame, done, err := r.Add(cur[0])
	if err != nil || !done {
		t.Fatalf("newer frame: done=%v err=%v", done, err)
	}
	if len(frame) != 50 {
		t.Errorf("frame size: got %d, want 50", len(frame))
	}

	// Late chunks of frame 1 are dropped silently.
	if _, done, err := r.Add(old[1]); done || err != nil {
		t.Errorf("late chunk: done=%v err=%v", done, err)
	}
}

func TestReassembler_Malformed(t *testing.T) {
	var r Reassembler
	if _, _, err := r.Add([]byte{1, 2, 3}); !errors.Is(err, ErrMalformedChunk) {
		t.Errorf("short message: got %v, want ErrMalformedChunk", err)
	}
	bad := make([]byte, headerSize)
	bad[5] = 3 // index 3
	bad[7] = 2 // of 2
	if _, _, err := r.Add(bad); !errors.Is(err, ErrMalformedChunk) {
		t.Errorf("index out of range: got %v, want ErrMalformedChunk", err)
	}
}
