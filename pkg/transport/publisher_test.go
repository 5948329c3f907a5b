package transport

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/media"
)

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}

	cfg.FrameRate = 0
	cfg.JPEGQuality = 101
	cfg.ChunkSize = 4
	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(errs), errs)
	}
}

func TestNewPublisher_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameRate = -1
	if _, err := NewPublisher(cfg, nil, log.Discard()); err == nil {
		t.Error("expected error for invalid config")
	}
}

// Loopback test: a local peer offers a frames channel and receives JPEGs.
func TestPublisher_Loopback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping WebRTC loopback in short mode")
	}

	track := media.NewFrameTrack("test", &media.Settings{Width: 64, Height: 48, FrameRate: 30})
	stream := media.NewStream(track)
	defer stream.Stop()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tk := time.NewTicker(20 * time.Millisecond)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				track.Push(img)
			}
		}
	}()

	cfg := DefaultConfig()
	cfg.FrameRate = 30
	pub, err := NewPublisher(cfg, func() *media.Stream { return stream }, log.Discard())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	client, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("client peer: %v", err)
	}
	defer client.Close()

	dc, err := client.CreateDataChannel(FramesLabel, nil)
	if err != nil {
		t.Fatalf("CreateDataChannel: %v", err)
	}
	frames := make(chan []byte, 4)
	var r Reassembler
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if frame, done, err := r.Add(msg.Data); err == nil && done {
			select {
			case frames <- frame:
			default:
			}
		}
	})

	offer, err := client.CreateOffer(nil)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	gathered := webrtc.GatheringCompletePromise(client)
	if err := client.SetLocalDescription(offer); err != nil {
		t.Fatalf("SetLocalDescription: %v", err)
	}
	<-gathered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	answer, id, err := pub.Answer(ctx, *client.LocalDescription())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if id == "" {
		t.Error("empty peer id")
	}
	if err := client.SetRemoteDescription(*answer); err != nil {
		t.Fatalf("SetRemoteDescription: %v", err)
	}

	select {
	case frame := <-frames:
		if len(frame) < 2 || frame[0] != 0xff || frame[1] != 0xd8 {
			t.Errorf("frame is not a JPEG: % x", frame[:min(4, len(frame))])
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no frame received")
	}

	if got := pub.PeerCount(); got != 1 {
		t.Errorf("PeerCount: got %d, want 1", got)
	}
}
