package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/frame-atlas/dataset"
	"github.com/theimaginaryfoundation/frame-atlas/dataset/provider"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing GEMINI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	logger, err := dataset.NewLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("cmd", "frames-annotator"))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := dataset.ReadIndexCSV(cfg.IndexPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := os.MkdirAll(cfg.FramesDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -frames: %w", err).Error())
		os.Exit(2)
	}

	client, err := provider.NewGeminiClient(provider.GeminiConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  apiKey,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	store := dataset.NewArtifactStore(cfg.FramesDir)
	metrics := dataset.NewMetrics()
	annotator := dataset.NewAnnotator(client, store)
	annotator.Tiers = cfg.Tiers
	annotator.Backoff = cfg.Backoff
	annotator.Pacing = cfg.Pacing
	annotator.Logger = logger
	annotator.Metrics = metrics

	work := rows
	if cfg.MaxItems > 0 && len(work) > cfg.MaxItems {
		work = work[:cfg.MaxItems]
	}
	logger.Info("annotating",
		zap.Int("rows", len(rows)),
		zap.Int("selected", len(work)),
		zap.String("frames", cfg.FramesDir),
		zap.String("models", formatTiers(cfg.Tiers)),
	)

	tally, runErr := dataset.RunBatch(ctx, work, annotator, logger)

	// The master file is rebuilt even after an interrupt so it reflects what is on disk.
	withRef, err := dataset.WriteMaster(cfg.MasterPath, rows, store)
	if err != nil {
		logger.Error("write master", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("master written", zap.String("path", cfg.MasterPath), zap.Int("records", len(rows)), zap.Int("with_frames", withRef))

	if cfg.Schema {
		if err := dataset.WriteTimelineSchema(cfg.SchemaPath); err != nil {
			logger.Warn("write schema", zap.Error(err))
		}
	}
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("write metrics", zap.Error(err))
		}
	}

	fmt.Fprintf(os.Stdout, "%s master=%s\n", tally, cfg.MasterPath)
	if runErr != nil {
		logger.Warn("run interrupted", zap.Error(runErr))
		os.Exit(1)
	}
}
