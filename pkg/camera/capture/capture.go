// Package capture opens real cameras with OpenCV's VideoCapture and
// publishes their frames as a media.Stream.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/camera"
	"github.com/teslashibe/go-facefilter/pkg/media"
)

// maxConsecutiveErrors ends capture after this many failed reads in a row.
const maxConsecutiveErrors = 10

// Device is an open VideoCapture.
type Device struct {
	cfg    camera.Config
	vc     *gocv.VideoCapture
	stream *media.Stream
	video  *media.FrameTrack
	audio  *camera.Silence
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var _ camera.Source = (*Device)(nil)

// Open opens cfg.Device. The "pattern" device opens the synthetic source.
// It satisfies camera.Opener.
func Open(ctx context.Context, cfg camera.Config) (camera.Source, error) {
	if cfg.IsPattern() {
		return camera.OpenPattern(ctx, cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(cfg.Device); convErr == nil {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		vc, err = gocv.OpenVideoCapture(cfg.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("open video source: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video source not opened: %s", cfg.Device)
	}

	vc.Set(gocv.VideoCaptureBufferSize, 1)
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	// What the driver actually negotiated.
	settings := media.Settings{
		Width:     int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:    int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FrameRate: vc.Get(gocv.VideoCaptureFPS),
	}

	d := &Device{
		cfg:    cfg,
		vc:     vc,
		video:  media.NewFrameTrack(cfg.Device, &settings),
		logger: log.Component("capture").With("device", cfg.Device),
	}
	tracks := []media.Track{d.video}
	if cfg.Audio {
		d.audio = camera.NewSilence()
		tracks = append(tracks, d.audio.Track())
	}
	d.stream = media.NewStream(tracks...)

	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(runCtx)

	d.logger.Info("video capture opened",
		"width", settings.Width, "height", settings.Height, "fps", settings.FrameRate)
	return d, nil
}

// Stream returns the camera stream.
func (d *Device) Stream() *media.Stream {
	return d.stream
}

func (d *Device) run(ctx context.Context) {
	defer d.wg.Done()
	defer d.video.Stop()

	img := gocv.NewMat()
	defer img.Close()

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := d.vc.Read(&img); !ok || img.Empty() {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				d.logger.Error("too many consecutive frame read errors, stopping capture", "errors", consecutiveErrors)
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		consecutiveErrors = 0

		if d.cfg.Mirror {
			gocv.Flip(img, &img, 1)
		}
		frame, err := img.ToImage()
		if err != nil {
			d.logger.Warn("frame conversion failed", "error", err)
			continue
		}
		d.video.Push(frame)
	}
}

// Close stops capture and releases the device.
func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
		err = d.vc.Close()
		if d.audio != nil {
			d.audio.Close()
		}
		d.stream.Stop()
	})
	return err
}
