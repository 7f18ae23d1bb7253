// Command fieldview runs the telemetry rendering service: the render loop
// over a sqlite telemetry log, the UI control api, the diagnostics monitor,
// and the gRPC frame stream.
//
// Usage:
//
//	go run ./cmd/fieldview [flags]
//
// Flags:
//
//	-config       Path to a YAML config file (defaults apply when omitted)
//	-replay       Recording directory to stream instead of rendering
//	-replay-rate  Replay speed multiplier, 0 streams unpaced (default: 1.0)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/jwbonner/advantagescope/internal/api"
	"github.com/jwbonner/advantagescope/internal/applog"
	"github.com/jwbonner/advantagescope/internal/config"
	"github.com/jwbonner/advantagescope/internal/field"
	"github.com/jwbonner/advantagescope/internal/field/assets"
	"github.com/jwbonner/advantagescope/internal/field/monitor"
	"github.com/jwbonner/advantagescope/internal/field/scene"
	"github.com/jwbonner/advantagescope/internal/field/viewstream"
	"github.com/jwbonner/advantagescope/internal/tslog"
	"github.com/jwbonner/advantagescope/internal/version"
)

var (
	configPath = flag.String("config", "", "path to YAML config file")
	replayPath = flag.String("replay", "", "recording directory to stream instead of rendering")
	replayRate = flag.Float64("replay-rate", 1.0, "replay speed multiplier (0 streams unpaced)")
)

// catalogDebounce coalesces bursts of asset file events into one reload.
const catalogDebounce = 250 * time.Millisecond

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			applog.Default().Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	logger := applog.New(cfg.GetLogLevel(), os.Stdout)
	logger.Infof("fieldview %s (%s)", version.Version, version.GitSHA)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *replayPath != "" {
		if err := runReplay(ctx, cfg, logger, *replayPath, *replayRate); err != nil {
			logger.Fatalf("replay: %v", err)
		}
		return
	}

	if err := runService(ctx, cfg, logger); err != nil {
		logger.Fatalf("fieldview: %v", err)
	}
}

// runService wires the render loop to the telemetry log, asset catalog, and
// the three service listeners, then blocks until the context is cancelled.
func runService(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	source, err := tslog.OpenSQLiteLog(cfg.GetTelemetryPath())
	if err != nil {
		return fmt.Errorf("open telemetry log: %w", err)
	}
	defer source.Close()
	logger.Infof("telemetry log: %s", cfg.GetTelemetryPath())

	streamCfg := viewstream.DefaultConfig()
	streamCfg.ListenAddr = cfg.GetStreamAddr()
	streamCfg.Log = logger
	publisher := viewstream.NewPublisher(streamCfg)

	renderer := field.NewRenderer(field.Options{
		Source:    source,
		Reader:    scene.RootedModelReader{Root: cfg.GetAssetsDir()},
		RefreshHz: cfg.GetRefreshHz(),
		OnFrame:   func(f *field.SceneFrame) { publisher.Publish(f) },
		Log:       logger,
	})

	// A missing catalog degrades to placeholder rendering; a later watch
	// event can still install one.
	if catalog, err := assets.LoadCatalog(cfg.GetAssetsDir()); err != nil {
		logger.Warnf("load asset catalog: %v", err)
	} else {
		renderer.SetCatalog(catalog)
		logger.Infof("asset catalog: %d fields, %d robots from %s",
			len(catalog.Fields), len(catalog.Robots), cfg.GetAssetsDir())
	}

	if cfg.GetAssetsWatch() {
		watcher, err := assets.WatchCatalog(cfg.GetAssetsDir(), catalogDebounce, renderer.SetCatalog)
		if err != nil {
			logger.Warnf("watch asset catalog: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	if cfg.Scene != nil {
		renderer.PushSnapshot(cfg.Snapshot())
	}

	if cfg.GetRecorderEnabled() {
		dir := filepath.Join(cfg.GetRecorderDir(), time.Now().UTC().Format("20060102-150405"))
		rec, err := viewstream.NewRecorder(dir, "fieldview")
		if err != nil {
			return fmt.Errorf("create recorder: %w", err)
		}
		defer rec.Close()
		publisher.SetRecorder(rec)
		logger.Infof("recording frames to %s", dir)
	}

	if err := publisher.Start(); err != nil {
		return fmt.Errorf("start frame stream: %w", err)
	}
	defer publisher.Stop()

	monitorServer := monitor.NewServer(monitor.ServerConfig{
		Address: cfg.GetMonitorAddr(),
		Source:  renderer,
		Log:     logger,
	})
	apiServer := api.NewServer(api.ServerConfig{
		Address: cfg.GetAPIAddr(),
		Control: renderer,
		Log:     logger,
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := renderer.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("render loop: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitorServer.Start(ctx); err != nil {
			logger.Errorf("monitor server: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(ctx); err != nil {
			logger.Errorf("api server: %v", err)
		}
	}()

	wg.Wait()
	logger.Infof("graceful shutdown complete")
	return nil
}

// runReplay streams a recorded session through the frame publisher once,
// paced by the recorded timestamps, then exits.
func runReplay(ctx context.Context, cfg *config.Config, logger *applog.Logger, path string, rate float64) error {
	replayer, err := viewstream.NewReplayer(path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer replayer.Close()

	header := replayer.Header()
	logger.Infof("replaying %s: %d frames recorded %s by %s",
		path, header.Frames, header.Created.Format(time.RFC3339), header.Source)

	streamCfg := viewstream.DefaultConfig()
	streamCfg.ListenAddr = cfg.GetStreamAddr()
	streamCfg.Log = logger
	publisher := viewstream.NewPublisher(streamCfg)
	if err := publisher.Start(); err != nil {
		return fmt.Errorf("start frame stream: %w", err)
	}
	defer publisher.Stop()

	if err := replayer.Play(ctx, rate, publisher.Publish); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("play recording: %w", err)
	}

	stats := publisher.Stats()
	logger.Infof("replay complete: %d frames published, %d dropped", stats.FrameCount, stats.DroppedFrames)
	return nil
}
