package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	ChannelsPath string
	OutDir       string
	IndexPath    string
	PagePause    time.Duration
	LogFormat    string
	APIKey       string
}

func (c Config) Validate() error {
	if c.ChannelsPath == "" {
		return errors.New("missing -channels")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.PagePause < 0 {
		return errors.New("page-pause must be >= 0")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return errors.New("log-format must be json or console")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ChannelsPath: "channels.csv",
		OutDir:       "dataset",
		PagePause:    50 * time.Millisecond,
		LogFormat:    "json",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ChannelsPath, "channels", cfg.ChannelsPath, "CSV with a \"channel\" column (URL, @handle, or channel id)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Dataset root; writes channels/, videos/ and index/videos_index.csv")
	fs.StringVar(&cfg.IndexPath, "index", "", "Optional index CSV path (default: <out>/index/videos_index.csv)")
	fs.DurationVar(&cfg.PagePause, "page-pause", cfg.PagePause, "Pause between paginated API calls")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log encoding: json or console")
	fs.StringVar(&cfg.APIKey, "api-key", "", "YouTube Data API key (overrides YOUTUBE_API_KEY env var)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ChannelsPath = filepath.Clean(cfg.ChannelsPath)
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.OutDir, "index", "videos_index.csv")
	}
	cfg.IndexPath = filepath.Clean(cfg.IndexPath)
	return cfg, nil
}
