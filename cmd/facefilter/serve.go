package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/teslashibe/go-facefilter/internal/config"
	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/camera"
	"github.com/teslashibe/go-facefilter/pkg/camera/capture"
	"github.com/teslashibe/go-facefilter/pkg/media"
	"github.com/teslashibe/go-facefilter/pkg/pipeline"
	"github.com/teslashibe/go-facefilter/pkg/session"
	"github.com/teslashibe/go-facefilter/pkg/transport"
	"github.com/teslashibe/go-facefilter/pkg/web"
)

type serveOptions struct {
	Port          string
	Device        string
	Preset        string
	Filter        string
	PreviewFPS    float64
	DisableWebRTC bool
	ICEServers    []string
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the camera pipeline and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveOpts)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.Port, "port", config.Port(), "dashboard port")
	f.StringVar(&serveOpts.Device, "device", config.CameraDevice(), "camera index, path, URL or \"pattern\"")
	f.StringVar(&serveOpts.Preset, "preset", "", "camera preset ("+fmt.Sprint(camera.PresetNames())+")")
	f.StringVar(&serveOpts.Filter, "filter", "", "filter to apply at startup")
	f.Float64Var(&serveOpts.PreviewFPS, "preview-fps", web.DefaultConfig().PreviewFPS, "dashboard preview frame rate")
	f.BoolVar(&serveOpts.DisableWebRTC, "no-webrtc", false, "disable WebRTC publishing")
	f.StringSliceVar(&serveOpts.ICEServers, "ice", nil, "ICE server URLs for WebRTC")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, opts serveOptions) (err error) {
	logger := log.Component("serve")

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	if filterDir != "" {
		go func() {
			if err := catalog.WatchDir(ctx, filterDir); err != nil {
				logger.Warn("filter directory not watched", "error", err)
			}
		}()
	}

	factory, err := detectorFactory(detectorName)
	if err != nil {
		return err
	}

	engine, err := pipeline.New(pipeline.DefaultConfig(), factory,
		pipeline.WithLogger(log.Component("pipeline")))
	if err != nil {
		return err
	}
	sess := session.New(engine, catalog, nil)
	defer func() { err = multierr.Append(err, sess.Close()) }()

	camCfg := camera.DefaultConfig()
	if opts.Preset != "" {
		preset := camera.GetPreset(opts.Preset)
		if preset == nil {
			return fmt.Errorf("unknown camera preset %q", opts.Preset)
		}
		camCfg = *preset
	}
	if opts.Device != "" && opts.Preset != camera.PresetPattern {
		camCfg.Device = opts.Device
	}

	cameras := camera.NewManager(capture.Open, nil)
	defer func() { err = multierr.Append(err, cameras.Close()) }()
	cameras.OnStreamChange = func(ctx context.Context, s *media.Stream) error {
		_, err := sess.InitializePipeline(ctx, s)
		return err
	}

	stream, err := cameras.Start(ctx, camCfg)
	if err != nil {
		return err
	}
	if _, err := sess.InitializePipeline(ctx, stream); err != nil {
		// The session keeps the error for the dashboard; the raw camera
		// stream is still served.
		logger.Error("pipeline unavailable, serving camera only", "error", err)
	}

	if opts.Filter != "" {
		if err := sess.SetFilter(ctx, opts.Filter); err != nil {
			logger.Warn("startup filter failed", "filter", opts.Filter, "error", err)
		}
	}

	webCfg := web.DefaultConfig()
	webCfg.Port = opts.Port
	webCfg.PreviewFPS = opts.PreviewFPS
	webOpts := []web.Option{web.WithCameraManager(cameras)}

	if !opts.DisableWebRTC {
		tcfg := transport.DefaultConfig()
		tcfg.ICEServers = opts.ICEServers
		var pub *transport.Publisher
		pub, err = transport.NewPublisher(tcfg, sess.Stream, nil)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, pub.Close()) }()
		webOpts = append(webOpts, web.WithPublisher(pub))
	}

	server, err := web.NewServer(webCfg, sess, webOpts...)
	if err != nil {
		return err
	}

	fmt.Printf("🎭 Face filter dashboard: http://localhost:%s\n", opts.Port)
	fmt.Printf("   detector=%s device=%s filters=%d\n", detectorName, camCfg.Device, catalog.Count())
	return server.Start(ctx)
}
