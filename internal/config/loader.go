package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidDetectorNames lists the detector names shipped with voxclip.
// Used by [Validate] to warn about unrecognised names.
var ValidDetectorNames = []string{"silero"}

// Environment variables consulted by [ApplyEnv].
const (
	EnvOutputRoot  = "VOXCLIP_OUTPUT_ROOT"
	EnvModelPath   = "VOXCLIP_MODEL_PATH"
	EnvLogLevel    = "VOXCLIP_LOG_LEVEL"
	EnvMetricsFile = "VOXCLIP_METRICS_FILE"
)

// Load reads the YAML configuration file at path on top of [Default] and
// returns the validated result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Keys absent from the document keep their defaults.
// An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the VOXCLIP_* environment variables that are
// set. lookup is normally [os.LookupEnv].
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvOutputRoot); ok && v != "" {
		cfg.OutputRoot = v
	}
	if v, ok := lookup(EnvModelPath); ok && v != "" {
		cfg.Detector.ModelPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = LogLevel(v)
	}
	if v, ok := lookup(EnvMetricsFile); ok && v != "" {
		cfg.Metrics.Textfile = v
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.OutputRoot == "" {
		errs = append(errs, errors.New("output_root is required"))
	}

	// Clip bounds
	if cfg.Clip.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("clip.min_duration %.2f must not be negative", cfg.Clip.MinDuration))
	}
	if cfg.Clip.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("clip.max_duration %.2f must be positive", cfg.Clip.MaxDuration))
	}
	if cfg.Clip.MinDuration > cfg.Clip.MaxDuration {
		errs = append(errs, fmt.Errorf("clip.min_duration %.2f exceeds clip.max_duration %.2f", cfg.Clip.MinDuration, cfg.Clip.MaxDuration))
	}

	// Detector
	if cfg.Detector.Name == "" {
		errs = append(errs, errors.New("detector.name is required"))
	} else {
		validateDetectorName(cfg.Detector.Name)
	}
	if cfg.Detector.ModelPath == "" && cfg.Detector.ModelURL == "" {
		errs = append(errs, errors.New("detector: one of model_path or model_url is required"))
	}
	if err := cfg.Detector.Params().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}

	return errors.Join(errs...)
}

// validateDetectorName logs a warning if name is not found in
// [ValidDetectorNames].
func validateDetectorName(name string) {
	if slices.Contains(ValidDetectorNames, name) {
		return
	}
	slog.Warn("unknown detector name, may be a typo or third-party detector",
		"name", name,
		"known", ValidDetectorNames,
	)
}
