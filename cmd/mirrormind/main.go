// mirrormind: expression and emotion detection server.
// Accepts landmark frames from browser detectors over WebSocket, smooths
// them per session and serves the dashboard, timeline and announcements.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"

	"github.com/teslashibe/go-mirrormind/internal/config"
	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/announce"
	"github.com/teslashibe/go-mirrormind/pkg/ingest"
	"github.com/teslashibe/go-mirrormind/pkg/pipeline"
	"github.com/teslashibe/go-mirrormind/pkg/timeline"
	"github.com/teslashibe/go-mirrormind/pkg/web"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "mirrormind:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	cfg := config.Server{
		Version: conf.Version{
			Build: version,
			Desc:  "MirrorMind expression detection server",
		},
	}
	if err := config.Parse(&cfg); err != nil {
		return err
	}

	log.Init(cfg.Log.Level)
	logger := log.Component("main")
	logger.Info("starting", "version", version)
	logger.Info("startup", "config", config.String(&cfg))

	tun, err := cfg.LoadTuning()
	if err != nil {
		return err
	}
	p, err := pipeline.New(tun, log.Component("pipeline"))
	if err != nil {
		return err
	}

	settings, err := cfg.AnnounceSettings()
	if err != nil {
		return err
	}

	detectors := ingest.NewHub(p, cfg.Ingest.MinInterval, log.Component("ingest"))
	srv := web.NewServer(
		cfg.Web.Addr,
		detectors,
		timeline.NewRecorder(cfg.Timeline.Capacity),
		announce.NewAnnouncer(settings),
		web.Options{
			StaticDir:  cfg.Web.StaticDir,
			TuningFile: cfg.Tuning.File,
			Version:    version,
		},
		log.Component("web"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", cfg.Web.Addr,
			"detector_ws", "/ws/detector",
			"results_ws", "/ws/results",
			"announcements_ws", "/ws/announcements")
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	logger.Info("goodbye")
	return nil
}
