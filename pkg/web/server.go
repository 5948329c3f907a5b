// Package web serves the face filter dashboard: REST control of the
// session, live JPEG preview and status over websockets, and WebRTC
// signalling.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/camera"
	"github.com/teslashibe/go-facefilter/pkg/hub"
	"github.com/teslashibe/go-facefilter/pkg/media"
	"github.com/teslashibe/go-facefilter/pkg/session"
	"github.com/teslashibe/go-facefilter/pkg/transport"
)

// Config holds dashboard configuration.
type Config struct {
	Port          string        `json:"port"`
	PreviewFPS    float64       `json:"preview_fps"`
	JPEGQuality   int           `json:"jpeg_quality"`
	StaticDir     string        `json:"static_dir"`
	StatsInterval time.Duration `json:"stats_interval"`
}

// DefaultConfig returns dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Port:          "8090",
		PreviewFPS:    15,
		JPEGQuality:   80,
		StaticDir:     "./web",
		StatsInterval: time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errs []string
	if c.Port == "" {
		errs = append(errs, "port is required")
	}
	if c.PreviewFPS <= 0 || c.PreviewFPS > 60 {
		errs = append(errs, "preview_fps must be in (0, 60]")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, "jpeg_quality must be in [1, 100]")
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, "stats_interval must be positive")
	}
	return errs
}

// Server is the dashboard server.
type Server struct {
	cfg     Config
	app     *fiber.App
	session *session.Session
	cameras *camera.Manager
	webrtc  *transport.Publisher
	logger  *slog.Logger

	// Hubs for websocket broadcast
	statusHub  *hub.Hub
	previewHub *hub.Hub

	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithCameraManager exposes camera settings under /api/camera.
func WithCameraManager(m *camera.Manager) Option {
	return func(s *Server) { s.cameras = m }
}

// WithPublisher enables WebRTC signalling under /api/webrtc/offer.
func WithPublisher(p *transport.Publisher) Option {
	return func(s *Server) { s.webrtc = p }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a dashboard server for sess.
func NewServer(cfg Config, sess *session.Session, opts ...Option) (*Server, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid web config: %v", errs)
	}

	s := &Server{
		cfg:     cfg,
		session: sess,
		logger:  log.Component("web"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.statusHub = hub.New("status", s.logger)
	s.previewHub = hub.New("preview", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "Face Filter",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/filters", s.handleListFilters)
	api.Put("/filter/:id", s.handleSetFilter)
	api.Delete("/filter", s.handleClearFilter)
	api.Get("/snapshot.jpg", s.handleSnapshot)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Post("/webrtc/offer", s.handleOffer)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))

	s.app = app
	return s, nil
}

// App returns the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs, preview encoder and status feed, then serves until
// ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { s.statusHub.Run(ctx); return nil })
	g.Go(func() error { s.previewHub.Run(ctx); return nil })
	g.Go(func() error { s.runPreview(ctx); return nil })
	g.Go(func() error { s.runStatus(ctx); return nil })
	g.Go(func() error {
		<-ctx.Done()
		return s.app.Shutdown()
	})
	g.Go(func() error {
		addr := net.JoinHostPort("", s.cfg.Port)
		s.logger.Info("dashboard listening", "url", "http://localhost:"+s.cfg.Port)
		err := s.app.Listen(addr)
		cancel()
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Shutdown stops the server and its background feeds.
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.app.Shutdown()
}

// runPreview encodes the filtered stream while anyone is watching.
func (s *Server) runPreview(ctx context.Context) {
	media.Follow(ctx, s.session.Stream, s.cfg.PreviewFPS, func(img image.Image) {
		if s.previewHub.ClientCount() == 0 {
			return
		}
		data, err := encodeJPEG(img, s.cfg.JPEGQuality)
		if err != nil {
			s.logger.Warn("preview encode failed", "error", err)
			return
		}
		s.previewHub.BroadcastBinary(data)
	})
}

// runStatus pushes state changes as they happen and stats periodically.
func (s *Server) runStatus(ctx context.Context) {
	unwatch := s.session.Watch(func(st session.State) {
		if err := s.statusHub.BroadcastJSON(statusMessage{Type: "state", State: &st}); err != nil {
			s.logger.Warn("status broadcast failed", "error", err)
		}
	})
	defer unwatch()

	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			st := s.session.Engine().Stats()
			if err := s.statusHub.BroadcastJSON(statusMessage{Type: "stats", Stats: &st}); err != nil {
				s.logger.Warn("stats broadcast failed", "error", err)
			}
		}
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
