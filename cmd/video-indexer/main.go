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
	"github.com/theimaginaryfoundation/frame-atlas/dataset/ytindex"
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
		apiKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing YOUTUBE_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	logger, err := dataset.NewLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("cmd", "video-indexer"))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channels, err := ytindex.ReadChannelsCSV(cfg.ChannelsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if len(channels) == 0 {
		fmt.Fprintln(os.Stderr, "no channels found in -channels")
		os.Exit(2)
	}

	client, err := ytindex.NewClient(ctx, apiKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	client.PagePause = cfg.PagePause

	ix := &ytindex.Indexer{Client: client, OutDir: cfg.OutDir, Logger: logger}
	rows, sum, err := ix.Run(ctx, channels)
	if err != nil {
		logger.Error("index channels", zap.Error(err), zap.Int("videos_so_far", len(rows)))
		os.Exit(1)
	}

	if err := dataset.WriteIndexCSV(cfg.IndexPath, rows); err != nil {
		logger.Error("write index", zap.Error(err))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "channels=%d skipped=%d videos=%d index=%s\n", sum.Channels, sum.ChannelsSkipped, sum.Videos, cfg.IndexPath)
}
