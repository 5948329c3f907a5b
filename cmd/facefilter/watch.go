package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facefilter/internal/log"
)

type watchOptions struct {
	Server string
	Status bool
	OutDir string
	Count  int
}

var watchOpts watchOptions

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running server's preview or status feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), watchOpts)
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchOpts.Server, "server", "localhost:8090", "dashboard host:port")
	f.BoolVar(&watchOpts.Status, "status", false, "print status messages instead of saving frames")
	f.StringVar(&watchOpts.OutDir, "out", "frames", "directory for saved preview frames")
	f.IntVar(&watchOpts.Count, "count", 30, "stop after this many messages (0 = forever)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, opts watchOptions) error {
	logger := log.Component("watch")

	path := "/ws/preview"
	if opts.Status {
		path = "/ws/status"
	}
	u := url.URL{Scheme: "ws", Host: opts.Server, Path: path}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u.String(), err)
	}
	defer conn.Close()
	logger.Info("connected", "url", u.String())

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	if !opts.Status {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return err
		}
	}

	start := time.Now()
	for n := 0; opts.Count == 0 || n < opts.Count; n++ {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case opts.Status && kind == websocket.TextMessage:
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warn("bad status message", "error", err)
				continue
			}
			pretty, _ := json.MarshalIndent(msg, "", "  ")
			fmt.Println(string(pretty))
		case !opts.Status && kind == websocket.BinaryMessage:
			name := filepath.Join(opts.OutDir, fmt.Sprintf("frame_%04d.jpg", n))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return err
			}
		}
	}

	elapsed := time.Since(start).Seconds()
	fmt.Printf("📊 %d messages in %.1fs\n", opts.Count, elapsed)
	return nil
}
