package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/asset"
	"github.com/teslashibe/go-facefilter/pkg/camera"
	"github.com/teslashibe/go-facefilter/pkg/canvas"
	"github.com/teslashibe/go-facefilter/pkg/compositor"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
)

type renderOptions struct {
	Input   string
	Output  string
	Filter  string
	Quality int
	Timeout time.Duration
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Apply a filter to a still image",
	Long: `Detects the face in one image, draws the filter and writes the result.
Without --in a synthetic test frame is used. The output format follows the
file extension.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd.Context(), renderOpts)
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.Input, "in", "", "input image (default: synthetic frame)")
	f.StringVarP(&renderOpts.Output, "out", "o", "filtered.png", "output image")
	f.StringVarP(&renderOpts.Filter, "filter", "f", "glasses", "filter id")
	f.IntVar(&renderOpts.Quality, "quality", 90, "JPEG quality when writing .jpg")
	f.DurationVar(&renderOpts.Timeout, "timeout", 30*time.Second, "detector timeout")
	rootCmd.AddCommand(renderCmd)
}

var errNoFace = errors.New("no face found")

func runRender(ctx context.Context, opts renderOptions) error {
	logger := log.Component("render")

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	f, err := catalog.Get(opts.Filter)
	if err != nil {
		return err
	}

	var img image.Image
	if opts.Input == "" {
		img = camera.PatternFrame(640, 480, 0)
	} else {
		img, err = imaging.Open(opts.Input, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("open %s: %w", opts.Input, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	set, err := detectOnce(ctx, img)
	if err != nil {
		return err
	}

	cache := asset.NewCache()
	if failed := cache.LoadAll(ctx, f.Sources()); len(failed) > 0 {
		logger.Warn("rendering without some overlays", "missing", len(failed))
	}

	b := img.Bounds()
	cv := canvas.New(b.Dx(), b.Dy())
	var drawn int
	cv.Paint(func(p *canvas.Painter) {
		p.DrawFrame(img)
		drawn = compositor.Composite(p, f, cache, set)
	})

	if err := imaging.Save(cv.Snapshot(), opts.Output, imaging.JPEGQuality(opts.Quality)); err != nil {
		return fmt.Errorf("save %s: %w", opts.Output, err)
	}
	fmt.Printf("✅ %s: %d/%d overlays drawn → %s\n", f.Name, drawn, len(f.Overlays), opts.Output)
	return nil
}

// detectOnce runs the configured detector on a single frame.
func detectOnce(ctx context.Context, img image.Image) (set *landmark.Set, err error) {
	factory, err := detectorFactory(detectorName)
	if err != nil {
		return nil, err
	}
	det, err := factory(ctx, landmark.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("start detector: %w", err)
	}
	defer func() { err = multierr.Append(err, det.Close()) }()

	results := make(chan landmark.Result, 1)
	det.OnResults(func(r landmark.Result) {
		select {
		case results <- r:
		default:
		}
	})

	if err := det.Send(ctx, img); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	select {
	case r := <-results:
		if face := r.Face(); face != nil {
			return face, nil
		}
		return nil, errNoFace
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
