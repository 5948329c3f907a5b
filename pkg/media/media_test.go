package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-facefilter/internal/log"
)

func frame(c uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{c, c, c, 255})
	return img
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFrameTrack_MailboxDropsOldest(t *testing.T) {
	track := NewFrameTrack("cam", nil)
	sub, err := track.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	f1, f2, f3 := frame(1), frame(2), frame(3)
	track.Push(f1)
	track.Push(f2)
	track.Push(f3)

	got := <-sub.C()
	if got != f3 {
		t.Error("mailbox should hold only the newest frame")
	}
	if sub.Drops() != 2 {
		t.Errorf("Drops: got %d, want 2", sub.Drops())
	}
}

func TestFrameTrack_StopClosesSubscribers(t *testing.T) {
	track := NewFrameTrack("cam", nil)
	sub, _ := track.Subscribe()

	track.Stop()
	track.Stop()

	if _, ok := <-sub.C(); ok {
		t.Error("subscription channel should be closed")
	}
	if !track.Ended() {
		t.Error("track should be ended")
	}
	if _, err := track.Subscribe(); !errors.Is(err, ErrTrackEnded) {
		t.Errorf("Subscribe after stop: got %v, want ErrTrackEnded", err)
	}
	sub.Close()
}

func TestFrameTrack_Settings(t *testing.T) {
	track := NewFrameTrack("cam", nil)
	if _, ok := track.Settings(); ok {
		t.Error("settings should be unknown")
	}
	track.SetSettings(Settings{Width: 1280, Height: 720, FrameRate: 30})
	s, ok := track.Settings()
	if !ok || s.Width != 1280 || s.Height != 720 {
		t.Errorf("Settings: got %+v, %v", s, ok)
	}
}

func TestStream_TracksByKind(t *testing.T) {
	video := NewFrameTrack("cam", nil)
	mic := NewPCMTrack("mic")
	s := NewStream(video, mic)

	if v, ok := s.Video(); !ok || v != VideoTrack(video) {
		t.Error("Video should return the camera track")
	}
	if a := s.AudioTracks(); len(a) != 1 || a[0] != AudioTrack(mic) {
		t.Errorf("AudioTracks: got %v", a)
	}

	other := NewStream(video)
	if other.ID() == s.ID() {
		t.Error("streams should have distinct ids")
	}

	s.Stop()
	if !video.Ended() || !mic.Ended() {
		t.Error("Stop should end every track")
	}
}

func TestPCMTrack_CloneRelays(t *testing.T) {
	mic := NewPCMTrack("mic")
	clone := mic.Clone()
	if clone.ID() == mic.ID() {
		t.Error("clone should have its own id")
	}

	sub, err := clone.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe clone: %v", err)
	}

	chunk := AudioChunk{Samples: []int16{1, 2, 3}, SampleRate: 48000, Channels: 1}
	// The relay goroutine subscribes synchronously in Clone, so this is
	// never lost.
	mic.Push(chunk)

	select {
	case got := <-sub.C():
		if len(got.Samples) != 3 || got.SampleRate != 48000 {
			t.Errorf("relayed chunk: got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("clone did not relay audio")
	}
}

func TestPCMTrack_StopCloneKeepsOriginal(t *testing.T) {
	mic := NewPCMTrack("mic")
	clone := mic.Clone()

	clone.Stop()
	if mic.Ended() {
		t.Error("stopping a clone must not end the original")
	}

	another := mic.Clone()
	mic.Stop()
	waitFor(t, another.Ended)
}

func TestDecoder_PlayBuffersLatestFrame(t *testing.T) {
	track := NewFrameTrack("cam", nil)
	d := NewDecoder(nil, log.Discard())

	if err := d.Play(context.Background(), PlayOptions{}); !errors.Is(err, ErrNotBound) {
		t.Errorf("Play unbound: got %v, want ErrNotBound", err)
	}

	if err := d.Bind(NewStream(track)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, ok := d.Frame(); ok {
		t.Error("decoder should have no data before playback")
	}

	if err := d.Play(context.Background(), PlayOptions{}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	f := frame(9)
	track.Push(f)
	waitFor(t, func() bool {
		got, ok := d.Frame()
		return ok && got == f
	})

	d.Release()
	if _, ok := d.Frame(); ok {
		t.Error("Release should drop the buffered frame")
	}
	if d.Playing() {
		t.Error("Release should stop playback")
	}
	if track.Subscribers() != 0 {
		t.Errorf("Release should unsubscribe, %d left", track.Subscribers())
	}
}

func TestDecoder_BindRequiresVideo(t *testing.T) {
	d := NewDecoder(nil, log.Discard())
	if err := d.Bind(NewStream(NewPCMTrack("mic"))); !errors.Is(err, ErrNoVideoTrack) {
		t.Errorf("Bind: got %v, want ErrNoVideoTrack", err)
	}
}

func TestDecoder_MutedOnlyPolicy(t *testing.T) {
	d := NewDecoder(MutedOnly, log.Discard())
	d.Bind(NewStream(NewFrameTrack("cam", nil)))

	if err := d.Play(context.Background(), PlayOptions{}); !errors.Is(err, ErrPlaybackBlocked) {
		t.Errorf("unmuted Play: got %v, want ErrPlaybackBlocked", err)
	}
	if err := d.Play(context.Background(), PlayOptions{Muted: true}); err != nil {
		t.Errorf("muted Play: %v", err)
	}
	if !d.Muted() {
		t.Error("decoder should report muted playback")
	}
	d.Release()
}

type fakeSurface struct {
	img   *image.RGBA
	snaps atomic.Int64
}

func (f *fakeSurface) Size() (int, int) { return f.img.Bounds().Dx(), f.img.Bounds().Dy() }

func (f *fakeSurface) Snapshot() *image.RGBA {
	f.snaps.Add(1)
	return f.img
}

func TestCaptureStream(t *testing.T) {
	src := &fakeSurface{img: image.NewRGBA(image.Rect(0, 0, 32, 24))}
	track := CaptureStream(src, 100)
	defer track.Stop()

	s, ok := track.Settings()
	if !ok || s.Width != 32 || s.Height != 24 || s.FrameRate != 100 {
		t.Errorf("Settings: got %+v", s)
	}

	sub, err := track.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	select {
	case got := <-sub.C():
		if got != image.Image(src.img) {
			t.Error("captured frame should come from the surface")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame captured")
	}
}

func TestCaptureStream_IdleSkipsSnapshot(t *testing.T) {
	src := &fakeSurface{img: image.NewRGBA(image.Rect(0, 0, 32, 24))}
	track := CaptureStream(src, 200)
	defer track.Stop()

	time.Sleep(50 * time.Millisecond)
	if n := src.snaps.Load(); n != 0 {
		t.Errorf("snapshots without subscribers: got %d, want 0", n)
	}

	sub, err := track.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, func() bool { return src.snaps.Load() > 0 })
	sub.Close()

	waitFor(t, func() bool { return track.Subscribers() == 0 })
	time.Sleep(20 * time.Millisecond)
	before := src.snaps.Load()
	time.Sleep(50 * time.Millisecond)
	if after := src.snaps.Load(); after != before {
		t.Errorf("snapshots after unsubscribe: got %d more, want 0", after-before)
	}
}

func TestFollow_SwitchesStreams(t *testing.T) {
	a := NewFrameTrack("a", nil)
	b := NewFrameTrack("b", nil)
	streamA, streamB := NewStream(a), NewStream(b)

	var current atomic.Pointer[Stream]
	current.Store(streamA)

	got := make(chan image.Image, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Follow(ctx, current.Load, 0, func(img image.Image) { got <- img })
	}()

	waitFor(t, func() bool { return a.Subscribers() == 1 })
	fa := frame(1)
	a.Push(fa)
	if img := <-got; img != fa {
		t.Error("expected frame from stream a")
	}

	current.Store(streamB)
	waitFor(t, func() bool { return b.Subscribers() == 1 && a.Subscribers() == 0 })
	fb := frame(2)
	b.Push(fb)
	if img := <-got; img != fb {
		t.Error("expected frame from stream b")
	}

	cancel()
	<-done
	if b.Subscribers() != 0 {
		t.Error("Follow should unsubscribe on return")
	}
}
