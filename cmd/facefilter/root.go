package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facefilter/internal/config"
	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/filter"
	"github.com/teslashibe/go-facefilter/pkg/landmark"
	"github.com/teslashibe/go-facefilter/pkg/landmark/facemesh"
	"github.com/teslashibe/go-facefilter/pkg/landmark/yunet"
)

// Version is the application version.
const Version = "0.1.0"

var (
	logLevel     string
	detectorName string
	filterDir    string
)

var rootCmd = &cobra.Command{
	Use:     "facefilter",
	Short:   "Real-time face overlay filters",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(logLevel)
	},
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.LogLevel(), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&detectorName, "detector", config.Detector(), "landmark detector (facemesh, yunet)")
	rootCmd.PersistentFlags().StringVar(&filterDir, "filters", config.FilterDir(), "directory of extra filter definitions")
}

// loadCatalog returns the built-in filters plus any found in filterDir.
func loadCatalog() (*filter.Catalog, error) {
	catalog, err := filter.Builtin()
	if err != nil {
		return nil, fmt.Errorf("load built-in filters: %w", err)
	}
	if filterDir != "" {
		if err := catalog.LoadDir(filterDir); err != nil {
			return nil, fmt.Errorf("load filters from %s: %w", filterDir, err)
		}
	}
	return catalog, nil
}

// detectorFactory maps a backend name to its factory.
func detectorFactory(name string) (landmark.Factory, error) {
	switch name {
	case "facemesh":
		cfg := facemesh.DefaultConfig()
		cfg.Script = config.FaceMeshScript()
		if errs := cfg.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("facemesh config: %v", errs)
		}
		return facemesh.Factory(cfg), nil
	case "yunet":
		cfg := yunet.DefaultConfig()
		cfg.ModelPath = config.YuNetModel()
		if errs := cfg.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("yunet config: %v", errs)
		}
		return yunet.Factory(cfg), nil
	default:
		return nil, fmt.Errorf("unknown detector %q (want facemesh or yunet)", name)
	}
}
