// Package config provides the configuration schema, loader, and detector
// registry for voxclip.
package config

import (
	"log/slog"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
	"github.com/MrWong99/voxclip/pkg/provider/vad/silero"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to the matching slog level. Unknown values map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure for voxclip.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader]
// and starts out as [Default].
type Config struct {
	// LogLevel controls verbosity of the stderr log.
	LogLevel LogLevel `yaml:"log_level"`

	// OutputRoot is the directory under which one folder per character is
	// created.
	OutputRoot string `yaml:"output_root"`

	Clip     ClipConfig     `yaml:"clip"`
	Detector DetectorConfig `yaml:"detector"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ClipConfig bounds accepted clip durations.
type ClipConfig struct {
	// MinDuration is the shortest clip kept, in seconds.
	MinDuration float64 `yaml:"min_duration"`

	// MaxDuration is the longest clip kept, in seconds.
	MaxDuration float64 `yaml:"max_duration"`

	// KeepOriginal preserves the input file after a successful run. When
	// false the input is deleted.
	KeepOriginal bool `yaml:"keep_original"`
}

// DetectorConfig selects and tunes the speech detector.
type DetectorConfig struct {
	// Name selects the registered detector implementation (e.g., "silero").
	Name string `yaml:"name"`

	// ModelPath points at a local model file. When set nothing is downloaded.
	ModelPath string `yaml:"model_path"`

	// ModelURL is where the model is fetched from when ModelPath is empty.
	ModelURL string `yaml:"model_url"`

	// ModelSHA256 is the expected hex digest of the model. Empty skips the check.
	ModelSHA256 string `yaml:"model_sha256"`

	// CacheDir overrides the model cache directory.
	// Leave empty to use the user cache directory.
	CacheDir string `yaml:"cache_dir"`

	// Threshold is the speech probability above which a frame counts as speech.
	Threshold float64 `yaml:"threshold"`

	MinSpeechMs  int `yaml:"min_speech_ms"`
	MinSilenceMs int `yaml:"min_silence_ms"`
	SpeechPadMs  int `yaml:"speech_pad_ms"`
}

// Params converts the tuning fields into detector parameters at the
// detection sample rate.
func (d DetectorConfig) Params() vad.Params {
	p := vad.DefaultParams()
	p.Threshold = d.Threshold
	p.MinSpeechDurationMs = d.MinSpeechMs
	p.MinSilenceDurationMs = d.MinSilenceMs
	p.SpeechPadMs = d.SpeechPadMs
	return p
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text-format dump of the run's
	// metrics on exit (node-exporter textfile collector format).
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	p := vad.DefaultParams()
	return &Config{
		LogLevel:   LogInfo,
		OutputRoot: "sounds",
		Clip: ClipConfig{
			MinDuration: 0.5,
			MaxDuration: 10.0,
		},
		Detector: DetectorConfig{
			Name:         silero.Name,
			ModelURL:     silero.DefaultModelURL,
			Threshold:    p.Threshold,
			MinSpeechMs:  p.MinSpeechDurationMs,
			MinSilenceMs: p.MinSilenceDurationMs,
			SpeechPadMs:  p.SpeechPadMs,
		},
	}
}
