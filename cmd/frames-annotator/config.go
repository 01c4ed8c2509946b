package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/frame-atlas/dataset"
	"github.com/theimaginaryfoundation/frame-atlas/dataset/provider"
)

type Config struct {
	ConfigPath string

	IndexPath  string
	FramesDir  string
	MasterPath string
	SchemaPath string
	Schema     bool

	Models  string
	Tiers   []dataset.ModelTier
	Backoff dataset.BackoffPolicy
	Pacing  dataset.PacingPolicy

	BaseURL string
	Timeout time.Duration

	MaxItems    int
	MetricsFile string
	LogFormat   string
	APIKey      string
}

// fileConfig is the -config YAML layout. Unset keys keep the built-in defaults,
// and explicit flags win over both.
type fileConfig struct {
	Index       string                 `yaml:"index"`
	FramesDir   string                 `yaml:"frames_dir"`
	Master      string                 `yaml:"master"`
	SchemaPath  string                 `yaml:"schema_path"`
	Schema      *bool                  `yaml:"schema"`
	Tiers       []dataset.ModelTier    `yaml:"tiers"`
	Backoff     *dataset.BackoffPolicy `yaml:"backoff"`
	Pacing      *dataset.PacingPolicy  `yaml:"pacing"`
	BaseURL     string                 `yaml:"base_url"`
	Timeout     time.Duration          `yaml:"timeout"`
	MaxItems    int                    `yaml:"max_items"`
	MetricsFile string                 `yaml:"metrics_file"`
	LogFormat   string                 `yaml:"log_format"`
}

func (c Config) Validate() error {
	if c.IndexPath == "" {
		return errors.New("missing -index")
	}
	if c.FramesDir == "" {
		return errors.New("missing -frames")
	}
	if c.MasterPath == "" {
		return errors.New("missing -master")
	}
	if len(c.Tiers) == 0 {
		return errors.New("missing -models")
	}
	for _, t := range c.Tiers {
		if t.Model == "" || t.Attempts <= 0 {
			return fmt.Errorf("invalid model tier %q:%d", t.Model, t.Attempts)
		}
	}
	if c.Backoff.Initial <= 0 || c.Backoff.Multiplier < 1 || c.Backoff.MaxJitter < 0 {
		return errors.New("backoff must have initial > 0, multiplier >= 1, jitter >= 0")
	}
	if c.Pacing.Min < 0 || c.Pacing.Spread < 0 {
		return errors.New("pacing must be >= 0")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if c.MaxItems < 0 {
		return errors.New("max-items must be >= 0")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return errors.New("log-format must be json or console")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		IndexPath:  filepath.FromSlash("dataset/index/videos_index.csv"),
		FramesDir:  filepath.FromSlash("dataset/frames"),
		MasterPath: filepath.FromSlash("dataset/master_frames.ndjson"),
		Schema:     true,
		Tiers:      dataset.DefaultTiers(),
		Backoff:    dataset.DefaultBackoff(),
		Pacing:     dataset.DefaultPacing(),
		BaseURL:    provider.DefaultGeminiBaseURL,
		Timeout:    provider.DefaultTimeout,
		LogFormat:  "json",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	if path := configPathFromArgs(args); path != "" {
		if err := applyConfigFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	cfg.Models = formatTiers(cfg.Tiers)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML file with defaults (flags override it)")
	fs.StringVar(&cfg.IndexPath, "index", cfg.IndexPath, "Video index CSV (needs video_id and watch_url columns)")
	fs.StringVar(&cfg.FramesDir, "frames", cfg.FramesDir, "Directory for per-video annotation artifacts")
	fs.StringVar(&cfg.MasterPath, "master", cfg.MasterPath, "Output path for master_frames.ndjson")
	fs.StringVar(&cfg.SchemaPath, "schema-path", cfg.SchemaPath, "Where to write the timeline JSON Schema (default: <master dir>/frames.schema.json)")
	fs.BoolVar(&cfg.Schema, "schema", cfg.Schema, "Write the timeline JSON Schema at end of run")
	fs.StringVar(&cfg.Models, "models", cfg.Models, "Model fallback ladder as model:attempts,model:attempts")
	fs.DurationVar(&cfg.Backoff.Initial, "backoff-initial", cfg.Backoff.Initial, "First retry delay for a video")
	fs.Float64Var(&cfg.Backoff.Multiplier, "backoff-multiplier", cfg.Backoff.Multiplier, "Retry delay growth factor")
	fs.DurationVar(&cfg.Backoff.MaxJitter, "backoff-jitter", cfg.Backoff.MaxJitter, "Max random delay added to each retry sleep")
	fs.DurationVar(&cfg.Pacing.Min, "pace-min", cfg.Pacing.Min, "Minimum pause after a video is annotated")
	fs.DurationVar(&cfg.Pacing.Spread, "pace-spread", cfg.Pacing.Spread, "Max random pause added to -pace-min")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Generative Language API base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.IntVar(&cfg.MaxItems, "max-items", cfg.MaxItems, "Annotate only the first N index rows (0 = all); the master file still covers every row")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Optional Prometheus textfile to write at end of run")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log encoding: json or console")
	fs.StringVar(&cfg.APIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	tiers, err := parseTiers(cfg.Models)
	if err != nil {
		return Config{}, err
	}
	cfg.Tiers = tiers

	cfg.IndexPath = filepath.Clean(cfg.IndexPath)
	cfg.FramesDir = filepath.Clean(cfg.FramesDir)
	cfg.MasterPath = filepath.Clean(cfg.MasterPath)
	if cfg.SchemaPath == "" {
		cfg.SchemaPath = filepath.Join(filepath.Dir(cfg.MasterPath), "frames.schema.json")
	}
	cfg.SchemaPath = filepath.Clean(cfg.SchemaPath)
	if cfg.MetricsFile != "" {
		cfg.MetricsFile = filepath.Clean(cfg.MetricsFile)
	}
	return cfg, nil
}

// configPathFromArgs finds -config before flag parsing so the file can seed flag defaults.
func configPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return ""
		}
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func applyConfigFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read -config: %w", err)
	}
	// Nested blocks decode over the current values so a partial block only
	// overrides the keys it names.
	backoff, pacing := cfg.Backoff, cfg.Pacing
	fc := fileConfig{Backoff: &backoff, Pacing: &pacing}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse -config %s: %w", path, err)
	}
	if fc.Index != "" {
		cfg.IndexPath = fc.Index
	}
	if fc.FramesDir != "" {
		cfg.FramesDir = fc.FramesDir
	}
	if fc.Master != "" {
		cfg.MasterPath = fc.Master
	}
	if fc.SchemaPath != "" {
		cfg.SchemaPath = fc.SchemaPath
	}
	if fc.Schema != nil {
		cfg.Schema = *fc.Schema
	}
	if len(fc.Tiers) > 0 {
		cfg.Tiers = fc.Tiers
	}
	if fc.Backoff != nil {
		cfg.Backoff = *fc.Backoff
	}
	if fc.Pacing != nil {
		cfg.Pacing = *fc.Pacing
	}
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.Timeout > 0 {
		cfg.Timeout = fc.Timeout
	}
	if fc.MaxItems > 0 {
		cfg.MaxItems = fc.MaxItems
	}
	if fc.MetricsFile != "" {
		cfg.MetricsFile = fc.MetricsFile
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	return nil
}

// parseTiers reads "model:attempts,model:attempts". A missing count means 1.
func parseTiers(s string) ([]dataset.ModelTier, error) {
	var tiers []dataset.ModelTier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		model, count, found := strings.Cut(part, ":")
		t := dataset.ModelTier{Model: strings.TrimSpace(model), Attempts: 1}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(count))
			if err != nil {
				return nil, fmt.Errorf("invalid -models entry %q: %w", part, err)
			}
			t.Attempts = n
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

func formatTiers(tiers []dataset.ModelTier) string {
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		parts = append(parts, t.Model+":"+strconv.Itoa(t.Attempts))
	}
	return strings.Join(parts, ",")
}
