package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, stage := range selectStages(cfg) {
		if stage == "index" && !cfg.Reindex && fileutils.FileExists(indexPath(cfg)) {
			fmt.Fprintln(os.Stdout, "skip index: index CSV already exists (use -reindex)")
			continue
		}
		args, err := stageArgs(cfg, stage)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		if err := runGo(ctx, args...); err != nil {
			os.Exit(1)
		}
	}
}

func selectStages(cfg Config) []string {
	if cfg.OnlyStage != "" {
		return []string{cfg.OnlyStage}
	}
	if cfg.FromStage != "" {
		return stagesFrom(allStages, cfg.FromStage)
	}
	return allStages
}

func indexPath(cfg Config) string {
	return filepath.Join(cfg.BaseDir, "index", "videos_index.csv")
}

// stageArgs builds the `go run` arguments for one stage.
func stageArgs(cfg Config, stage string) ([]string, error) {
	switch stage {
	case "index":
		return []string{
			"run", "./cmd/video-indexer",
			"-channels", cfg.ChannelsPath,
			"-out", cfg.BaseDir,
			"-index", indexPath(cfg),
			"-log-format", cfg.LogFormat,
		}, nil
	case "annotate":
		args := []string{"run", "./cmd/frames-annotator"}
		if cfg.ConfigPath != "" {
			args = append(args, "-config", cfg.ConfigPath)
		}
		args = append(args,
			"-index", indexPath(cfg),
			"-frames", filepath.Join(cfg.BaseDir, "frames"),
			"-master", filepath.Join(cfg.BaseDir, "master_frames.ndjson"),
			"-log-format", cfg.LogFormat,
		)
		if cfg.Models != "" {
			args = append(args, "-models", cfg.Models)
		}
		if cfg.MaxItems > 0 {
			args = append(args, "-max-items", fmt.Sprintf("%d", cfg.MaxItems))
		}
		if cfg.MetricsFile != "" {
			args = append(args, "-metrics-file", cfg.MetricsFile)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
}

func runGo(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "command failed:", "go "+strings.Join(args, " "))
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		return err
	}
	fmt.Fprintln(os.Stdout, "ok:", "go "+strings.Join(args, " "), "(", time.Since(start).Round(time.Millisecond).String()+")")
	return nil
}

func stagesFrom(stages []string, from string) []string {
	from = strings.ToLower(strings.TrimSpace(from))
	for i, s := range stages {
		if s == from {
			return stages[i:]
		}
	}
	return stages
}
