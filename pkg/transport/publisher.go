// Package transport publishes the filtered stream to WebRTC peers. Frames
// are sent as JPEG over an unordered data channel; the peer opens a channel
// labelled "frames" in its offer.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"go.uber.org/multierr"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/media"
)

// FramesLabel is the data channel label the publisher streams on.
const FramesLabel = "frames"

// Config holds publisher configuration.
type Config struct {
	ICEServers  []string `json:"ice_servers"`
	FrameRate   float64  `json:"frame_rate"`
	JPEGQuality int      `json:"jpeg_quality"`
	ChunkSize   int      `json:"chunk_size"`
}

// DefaultConfig returns defaults for LAN use.
func DefaultConfig() Config {
	return Config{
		FrameRate:   15,
		JPEGQuality: 75,
		ChunkSize:   DefaultChunkSize,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errs []string
	if c.FrameRate <= 0 || c.FrameRate > 60 {
		errs = append(errs, "frame_rate must be in (0, 60]")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, "jpeg_quality must be in [1, 100]")
	}
	if c.ChunkSize <= headerSize || c.ChunkSize > 64*1024 {
		errs = append(errs, "chunk_size must be in (8, 65536]")
	}
	return errs
}

// Publisher answers WebRTC offers and streams the current filtered stream
// to every connected peer.
type Publisher struct {
	cfg     Config
	current func() *media.Stream
	logger  *slog.Logger

	mu    sync.Mutex
	peers map[string]*peer
}

type peer struct {
	id     string
	pc     *webrtc.PeerConnection
	cancel context.CancelFunc
	sent   atomic.Int64
}

// NewPublisher creates a publisher. current is re-read continuously, so
// stream swaps reach connected peers without renegotiation.
func NewPublisher(cfg Config, current func() *media.Stream, logger *slog.Logger) (*Publisher, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid transport config: %v", errs)
	}
	if logger == nil {
		logger = log.Component("transport")
	}
	return &Publisher{
		cfg:     cfg,
		current: current,
		logger:  logger,
		peers:   make(map[string]*peer),
	}, nil
}

// Answer accepts an offer and returns the answer with gathered candidates
// and the peer id.
func (p *Publisher) Answer(ctx context.Context, offer webrtc.SessionDescription) (*webrtc.SessionDescription, string, error) {
	config := webrtc.Configuration{}
	if len(p.cfg.ICEServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: p.cfg.ICEServers}}
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, "", fmt.Errorf("create peer connection: %w", err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	pr := &peer{id: uuid.NewString(), pc: pc, cancel: cancel}
	logger := p.logger.With("peer", pr.id)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != FramesLabel {
			logger.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		dc.OnOpen(func() {
			logger.Info("frames channel open")
			go p.stream(streamCtx, pr, dc)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Debug("connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			p.remove(pr.id)
		}
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		cancel()
		pc.Close()
		return nil, "", fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		cancel()
		pc.Close()
		return nil, "", fmt.Errorf("create answer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		cancel()
		pc.Close()
		return nil, "", fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		cancel()
		pc.Close()
		return nil, "", ctx.Err()
	}

	p.mu.Lock()
	p.peers[pr.id] = pr
	p.mu.Unlock()

	return pc.LocalDescription(), pr.id, nil
}

func (p *Publisher) stream(ctx context.Context, pr *peer, dc *webrtc.DataChannel) {
	var seq uint32
	media.Follow(ctx, p.current, p.cfg.FrameRate, func(img image.Image) {
		data, err := encodeJPEG(img, p.cfg.JPEGQuality)
		if err != nil {
			p.logger.Warn("frame encode failed", "error", err)
			return
		}
		msgs, err := Packetize(seq, data, p.cfg.ChunkSize)
		if err != nil {
			p.logger.Warn("frame packetize failed", "error", err)
			return
		}
		seq++
		for _, m := range msgs {
			if err := dc.Send(m); err != nil {
				p.logger.Debug("frame send failed", "peer", pr.id, "error", err)
				return
			}
		}
		pr.sent.Add(1)
	})
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Publisher) remove(id string) {
	p.mu.Lock()
	pr, ok := p.peers[id]
	delete(p.peers, id)
	p.mu.Unlock()

	if ok {
		pr.cancel()
		p.logger.Info("peer removed", "peer", id)
	}
}

// PeerCount returns the number of connected peers.
func (p *Publisher) PeerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}

// FramesSent returns how many frames were sent to the peer.
func (p *Publisher) FramesSent(id string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pr, ok := p.peers[id]; ok {
		return pr.sent.Load()
	}
	return 0
}

// Close disconnects every peer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	peers := p.peers
	p.peers = make(map[string]*peer)
	p.mu.Unlock()

	var err error
	for _, pr := range peers {
		pr.cancel()
		err = multierr.Append(err, pr.pc.Close())
	}
	return err
}
