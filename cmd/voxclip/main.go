// Command voxclip splits a voice recording into short speech clips using
// voice activity detection.
//
//	voxclip <character> <input_file> [flags]
//
// Accepted clips are written to <output_root>/<character>/clip_NNN.wav at the
// recording's native sample rate. The input is deleted afterwards unless
// --keep-original is given.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/voxclip/internal/app"
	"github.com/MrWong99/voxclip/internal/config"
	"github.com/MrWong99/voxclip/internal/observe"
	"github.com/MrWong99/voxclip/pkg/provider/vad"
	"github.com/MrWong99/voxclip/pkg/provider/vad/silero"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// CLI is the command line of voxclip. Pointer flags stay nil when not given
// so the config file and environment keep their values.
type CLI struct {
	Character string `arg:"" help:"Character name; clips go to <output-root>/<character>/."`
	InputFile string `arg:"" name:"input_file" help:"WAV recording to split."`

	MinDuration  *float64 `help:"Minimum clip duration in seconds (default: 0.5)."`
	MaxDuration  *float64 `help:"Maximum clip duration in seconds (default: 10.0)."`
	KeepOriginal bool     `help:"Don't delete the original file after splitting."`
	Threshold    *float64 `help:"VAD threshold 0-1 (default: 0.5, higher = stricter)."`

	Config      string  `env:"VOXCLIP_CONFIG" type:"path" help:"YAML configuration file."`
	OutputRoot  *string `help:"Parent directory of the character folders (default: sounds)."`
	ModelPath   *string `help:"Local Silero ONNX model; skips the download."`
	LogLevel    *string `help:"Log level: debug, info, warn, error."`
	MetricsFile *string `help:"Write Prometheus metrics to this file on exit."`

	Version kong.VersionFlag `help:"Print version and exit."`
}

// detectorRegistrar registers detector factories. ctx bounds any work the
// factories do, such as downloading a model.
type detectorRegistrar func(ctx context.Context, reg *config.Registry, progress io.Writer)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, registerBuiltinDetectors)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, register detectorRegistrar) int {
	// ── Environment files ─────────────────────────────────────────────────────
	loadEnvFiles(envFiles())

	// ── CLI flags ─────────────────────────────────────────────────────────────
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("voxclip"),
		kong.Description("Split a voice recording into speech clips using voice activity detection."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintf(stderr, "voxclip: %v\n", err)
		return 1
	}
	_, err = parser.Parse(args)
	if exitCode >= 0 {
		// --help or --version
		return exitCode
	}
	if err != nil {
		// Prints the error and usage; the exit hook only records the code.
		parser.FatalIfErrorf(err)
		return 2
	}

	// ── Configuration ─────────────────────────────────────────────────────────
	cfg, err := loadConfig(&cli)
	if err != nil {
		fmt.Fprintf(stderr, "voxclip: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(stderr, cfg.LogLevel))
	slog.Debug("voxclip starting",
		"version", version,
		"config", cli.Config,
		"detector", cfg.Detector.Name,
		"output_root", cfg.OutputRoot,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		Textfile:       cfg.Metrics.Textfile,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Detector registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	register(ctx, reg, stderr)

	// ── Run ───────────────────────────────────────────────────────────────────
	opts := app.Options{
		Character:    cli.Character,
		InputPath:    cli.InputFile,
		MinDuration:  cfg.Clip.MinDuration,
		MaxDuration:  cfg.Clip.MaxDuration,
		KeepOriginal: cfg.Clip.KeepOriginal,
		Threshold:    cfg.Detector.Threshold,
		OutputRoot:   cfg.OutputRoot,
	}
	application := app.New(opts, reg.VADFactory(cfg.Detector),
		app.WithOutput(stdout),
		app.WithMetrics(metrics),
		app.WithDetectorParams(cfg.Detector.Params()),
		app.WithDetectorName(cfg.Detector.Name),
	)
	if _, err := application.Run(ctx); err != nil {
		if errors.Is(err, app.ErrInputNotFound) {
			fmt.Fprintf(stderr, "Error: File not found: %s\n", cli.InputFile)
			return 1
		}
		slog.Error("voxclip failed", "state", application.State(), "err", err)
		return 1
	}
	return 0
}

// loadConfig layers defaults, the optional YAML file, VOXCLIP_* environment
// variables and finally explicitly given flags, then validates the result.
func loadConfig(cli *CLI) (*config.Config, error) {
	cfg := config.Default()
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.ApplyEnv(cfg, os.LookupEnv)
	applyFlags(cfg, cli)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every flag that was given on the command line into cfg.
func applyFlags(cfg *config.Config, cli *CLI) {
	if cli.MinDuration != nil {
		cfg.Clip.MinDuration = *cli.MinDuration
	}
	if cli.MaxDuration != nil {
		cfg.Clip.MaxDuration = *cli.MaxDuration
	}
	if cli.KeepOriginal {
		cfg.Clip.KeepOriginal = true
	}
	if cli.Threshold != nil {
		cfg.Detector.Threshold = *cli.Threshold
	}
	if cli.OutputRoot != nil {
		cfg.OutputRoot = *cli.OutputRoot
	}
	if cli.ModelPath != nil {
		cfg.Detector.ModelPath = *cli.ModelPath
	}
	if cli.LogLevel != nil {
		cfg.LogLevel = config.LogLevel(*cli.LogLevel)
	}
	if cli.MetricsFile != nil {
		cfg.Metrics.Textfile = *cli.MetricsFile
	}
}

// registerBuiltinDetectors registers all detectors shipped with voxclip.
func registerBuiltinDetectors(ctx context.Context, reg *config.Registry, progress io.Writer) {
	reg.RegisterDetector(silero.Name, func(entry config.DetectorConfig, params vad.Params) (vad.Detector, error) {
		if !silero.Available() {
			return nil, silero.ErrUnavailable
		}
		cache := &silero.ModelCache{
			ModelPath: entry.ModelPath,
			URL:       entry.ModelURL,
			SHA256:    entry.ModelSHA256,
			Dir:       entry.CacheDir,
			Progress:  progress,
		}
		modelPath, err := cache.Path(ctx)
		if err != nil {
			return nil, err
		}
		det, err := silero.New(modelPath, params)
		if err != nil {
			return nil, err
		}
		return det, nil
	})
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// envFiles lists the dotenv files consulted at startup, in priority order.
func envFiles() []string {
	files := []string{".env", "voxclip.env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", "voxclip.env"))
	}
	return files
}

// loadEnvFiles loads every existing file with godotenv. Variables that are
// already set are not overridden, so earlier files win.
func loadEnvFiles(files []string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "file", f, "err", err)
		}
	}
}

// newLogger creates a text slog.Logger on w at the given level.
func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.SlogLevel()}))
}
