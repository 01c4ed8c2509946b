package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

var allStages = []string{"index", "annotate"}

type Config struct {
	ChannelsPath string
	BaseDir      string

	Models   string
	MaxItems int

	ConfigPath  string
	MetricsFile string
	LogFormat   string

	FromStage string
	OnlyStage string

	// Reindex re-runs the indexer even if an index CSV already exists.
	Reindex bool
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return errors.New("missing -base-dir")
	}
	if c.MaxItems < 0 {
		return errors.New("max-items must be >= 0")
	}
	if c.OnlyStage != "" && c.FromStage != "" {
		return errors.New("use only one of -only-stage or -from-stage")
	}
	for _, s := range []string{c.OnlyStage, c.FromStage} {
		if s != "" && !slices.Contains(allStages, s) {
			return fmt.Errorf("unknown stage %q (want index|annotate)", s)
		}
	}
	if c.ChannelsPath == "" && c.OnlyStage != "annotate" && c.FromStage != "annotate" {
		return errors.New("missing -channels")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ChannelsPath: "channels.csv",
		BaseDir:      "dataset",
		LogFormat:    "json",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ChannelsPath, "channels", cfg.ChannelsPath, "channels.csv for the index stage")
	fs.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "Dataset root (index/, frames/, master_frames.ndjson)")
	fs.StringVar(&cfg.Models, "models", "", "Passed to frames-annotator -models when set")
	fs.IntVar(&cfg.MaxItems, "max-items", cfg.MaxItems, "Annotate only the first N rows (0 = all)")
	fs.StringVar(&cfg.ConfigPath, "annotator-config", "", "Optional YAML config for frames-annotator")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Optional Prometheus textfile for the annotate stage")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log encoding for both stages: json or console")
	fs.StringVar(&cfg.FromStage, "from-stage", "", "Start at stage: index|annotate")
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run only one stage: index|annotate")
	fs.BoolVar(&cfg.Reindex, "reindex", cfg.Reindex, "Run the index stage even if the index CSV exists")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.ChannelsPath != "" {
		cfg.ChannelsPath = filepath.Clean(cfg.ChannelsPath)
	}
	cfg.BaseDir = filepath.Clean(cfg.BaseDir)
	if cfg.ConfigPath != "" {
		cfg.ConfigPath = filepath.Clean(cfg.ConfigPath)
	}
	if cfg.MetricsFile != "" {
		cfg.MetricsFile = filepath.Clean(cfg.MetricsFile)
	}
	return cfg, nil
}
