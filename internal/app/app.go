// Package app runs one voxclip job: validate the request, detect speech in
// the input recording, write the accepted segments as clips, and optionally
// remove the original.
//
// The speech detector is injected as a [vad.Factory] so tests can supply a
// deterministic stub. Progress and summary lines go to the writer set with
// [WithOutput]; diagnostics go to slog.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/MrWong99/voxclip/internal/clip"
	"github.com/MrWong99/voxclip/internal/observe"
	"github.com/MrWong99/voxclip/pkg/audio"
	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

// ErrInputNotFound is returned by Run when the input file does not exist.
var ErrInputNotFound = errors.New("app: input file not found")

// ErrInvalidOptions wraps validation failures of [Options].
var ErrInvalidOptions = errors.New("app: invalid options")

// State is the lifecycle state of an [App].
type State int32

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	StateValidating
	StateProcessing
	StateDone
	StateFailed
)

// String returns the upper-case name of s.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateValidating:
		return "VALIDATING"
	case StateProcessing:
		return "PROCESSING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options describes one job.
type Options struct {
	// Character names the output folder under OutputRoot. Must be a single
	// path element.
	Character string

	// InputPath is the WAV recording to split.
	InputPath string

	// MinDuration and MaxDuration bound accepted clips, in seconds. Both
	// bounds are inclusive.
	MinDuration float64
	MaxDuration float64

	// KeepOriginal preserves InputPath after a successful run.
	KeepOriginal bool

	// Threshold is the detector's speech probability threshold in [0, 1].
	Threshold float64

	// OutputRoot is the parent of the per-character folder.
	OutputRoot string
}

// OutputDir returns OutputRoot/Character.
func (o Options) OutputDir() string {
	return filepath.Join(o.OutputRoot, o.Character)
}

// App executes a single job. It is not reusable: call Run once.
type App struct {
	opts     Options
	factory  vad.Factory
	params   vad.Params
	detector string
	out      io.Writer
	metrics  *observe.Metrics
	state    atomic.Int32
}

// Option is a functional option for New.
type Option func(*App)

// WithOutput sets the writer that receives progress and summary lines.
// Default: io.Discard.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithDetectorParams sets the base detection parameters. The threshold from
// [Options] always overrides p.Threshold. Default: [vad.DefaultParams].
func WithDetectorParams(p vad.Params) Option {
	return func(a *App) { a.params = p }
}

// WithDetectorName sets the name used for the detector in metrics and logs.
func WithDetectorName(name string) Option {
	return func(a *App) { a.detector = name }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App for opts. factory is called once per Run to build the
// speech detector.
func New(opts Options, factory vad.Factory, options ...Option) *App {
	a := &App{
		opts:     opts,
		factory:  factory,
		params:   vad.DefaultParams(),
		detector: "vad",
		out:      io.Discard,
	}
	for _, o := range options {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// State reports the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	a.state.Store(int32(s))
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run validates the options, processes the input and, unless KeepOriginal is
// set, deletes the input file. Any failure moves the App to StateFailed.
func (a *App) Run(ctx context.Context) (clip.Summary, error) {
	ctx, span := observe.StartSpan(ctx, "voxclip.run")
	defer span.End()

	sum, err := a.run(ctx)
	if err != nil {
		a.setState(StateFailed)
		a.metrics.RecordRun(ctx, observe.StatusError)
		span.RecordError(err)
		return sum, err
	}
	a.setState(StateDone)
	a.metrics.RecordRun(ctx, observe.StatusOK)
	return sum, nil
}

func (a *App) run(ctx context.Context) (clip.Summary, error) {
	log := observe.Logger(ctx)

	// ── 1. Validate ──────────────────────────────────────────────────────
	a.setState(StateValidating)
	if err := a.validate(); err != nil {
		return clip.Summary{}, err
	}

	// ── 2. Process ───────────────────────────────────────────────────────
	a.setState(StateProcessing)
	dir := a.opts.OutputDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return clip.Summary{}, fmt.Errorf("app: create output dir %q: %w", dir, err)
	}
	if !a.opts.KeepOriginal {
		log.Warn("input will be deleted after processing; pass --keep-original to keep it", "input", a.opts.InputPath)
	}

	fmt.Fprintln(a.out, "Loading speech detector...")
	params := a.params
	params.Threshold = a.opts.Threshold
	det, err := a.factory(params)
	if err != nil {
		a.metrics.RecordDetectorError(ctx, a.detector)
		return clip.Summary{}, fmt.Errorf("app: create detector: %w", err)
	}
	defer func() {
		if err := det.Close(); err != nil {
			log.Warn("failed to close detector", "detector", a.detector, "err", err)
		}
	}()

	var wave *audio.Waveform
	fmt.Fprintf(a.out, "Loading audio: %s\n", a.opts.InputPath)
	if err := observe.Stage(ctx, a.metrics, observe.StageLoad, func(context.Context) error {
		var err error
		wave, err = audio.Load(a.opts.InputPath)
		return err
	}); err != nil {
		return clip.Summary{}, fmt.Errorf("app: %w", err)
	}
	a.metrics.RecordAudio(ctx, wave.Seconds())
	log.Debug("audio loaded", "path", a.opts.InputPath, "duration", wave.Duration(), "sample_rate", wave.SampleRate, "bit_depth", wave.BitDepth)
	fmt.Fprintf(a.out, "Duration: %.1fs, Sample rate: %dHz\n", wave.Seconds(), wave.SampleRate)

	var detWave *audio.Waveform
	fmt.Fprintf(a.out, "Resampling to %dkHz for VAD...\n", params.SampleRate/1000)
	if err := observe.Stage(ctx, a.metrics, observe.StageResample, func(context.Context) error {
		detWave = wave.Resample(params.SampleRate)
		return nil
	}); err != nil {
		return clip.Summary{}, fmt.Errorf("app: %w", err)
	}

	var spans []vad.Span
	fmt.Fprintln(a.out, "Detecting speech segments...")
	if err := observe.Stage(ctx, a.metrics, observe.StageDetect, func(ctx context.Context) error {
		raw, err := det.Detect(ctx, detWave.Float32())
		if err != nil {
			a.metrics.RecordDetectorError(ctx, a.detector)
			return fmt.Errorf("app: detect speech: %w", err)
		}
		spans, err = vad.Normalize(raw)
		return err
	}); err != nil {
		return clip.Summary{}, err
	}
	a.metrics.RecordSpans(ctx, len(spans))
	fmt.Fprintf(a.out, "Found %d speech segments\n", len(spans))

	exp := clip.NewExporter(dir, a.opts.MinDuration, a.opts.MaxDuration,
		clip.WithOutput(a.out),
		clip.WithMetrics(a.metrics),
		clip.WithSpanRate(params.SampleRate),
	)
	var sum clip.Summary
	if err := observe.Stage(ctx, a.metrics, observe.StageExport, func(ctx context.Context) error {
		var err error
		sum, err = exp.Export(ctx, wave, spans)
		return err
	}); err != nil {
		return sum, err
	}
	sum.Report(a.out, a.opts.MinDuration, a.opts.MaxDuration)
	log.Info("clips exported",
		"dir", sum.Dir,
		"detected", sum.Detected,
		"saved", sum.Saved,
		"skipped_short", sum.SkippedShort,
		"skipped_long", sum.SkippedLong,
	)

	// ── 3. Clean up ──────────────────────────────────────────────────────
	if !a.opts.KeepOriginal {
		if err := os.Remove(a.opts.InputPath); err != nil {
			return sum, fmt.Errorf("app: remove original: %w", err)
		}
		fmt.Fprintf(a.out, "Removed original: %s\n", filepath.Base(a.opts.InputPath))
	}
	return sum, nil
}

// validate checks the options. A missing input is reported on its own as
// ErrInputNotFound; all other problems are joined under ErrInvalidOptions.
func (a *App) validate() error {
	fi, err := os.Stat(a.opts.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, a.opts.InputPath)
		}
		return fmt.Errorf("app: stat input: %w", err)
	}
	var errs []error
	if fi.IsDir() {
		errs = append(errs, fmt.Errorf("input %q is a directory", a.opts.InputPath))
	}
	if err := validCharacter(a.opts.Character); err != nil {
		errs = append(errs, err)
	}
	if a.opts.OutputRoot == "" {
		errs = append(errs, errors.New("output root is required"))
	}
	if a.opts.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("min duration %.2f must not be negative", a.opts.MinDuration))
	}
	if a.opts.MinDuration > a.opts.MaxDuration {
		errs = append(errs, fmt.Errorf("min duration %.2f exceeds max duration %.2f", a.opts.MinDuration, a.opts.MaxDuration))
	}
	if a.opts.Threshold < 0 || a.opts.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold %.2f is out of range [0, 1]", a.opts.Threshold))
	}
	if a.factory == nil {
		errs = append(errs, errors.New("no detector factory"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
	}
	return nil
}

// validCharacter accepts names that stay inside the output root as a single
// directory.
func validCharacter(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("character name is required")
	case name == "." || name == "..":
		return fmt.Errorf("character name %q is not a directory name", name)
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return fmt.Errorf("character name %q must not contain path separators", name)
	}
	return nil
}
