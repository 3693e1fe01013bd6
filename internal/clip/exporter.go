package clip

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MrWong99/voxclip/internal/observe"
	"github.com/MrWong99/voxclip/pkg/audio"
	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

// Summary reports what an export did.
type Summary struct {
	// Dir is the directory clips were written to.
	Dir string

	// Detected is the number of spans handed to the exporter.
	Detected int

	// Saved is the number of clips written.
	Saved int

	// SkippedShort and SkippedLong count spans rejected by the filter.
	SkippedShort int
	SkippedLong  int

	// Paths lists the written clip files in order.
	Paths []string
}

// Exporter turns speech spans into clip files inside Dir.
type Exporter struct {
	dir      string
	min, max float64
	spanRate int
	out      io.Writer
	metrics  *observe.Metrics
}

// Option is a functional option for NewExporter.
type Option func(*Exporter)

// WithOutput sets the writer that receives per-clip progress lines.
// Default: io.Discard.
func WithOutput(w io.Writer) Option {
	return func(e *Exporter) { e.out = w }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// WithSpanRate sets the sample rate the spans are expressed in.
// Default: [audio.DetectionRate].
func WithSpanRate(rate int) Option {
	return func(e *Exporter) { e.spanRate = rate }
}

// NewExporter returns an Exporter writing to dir that keeps spans whose
// duration lies in [minSeconds, maxSeconds].
func NewExporter(dir string, minSeconds, maxSeconds float64, opts ...Option) *Exporter {
	e := &Exporter{
		dir:      dir,
		min:      minSeconds,
		max:      maxSeconds,
		spanRate: audio.DetectionRate,
		out:      io.Discard,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Export filters spans in order and writes every accepted one as the next
// clip_NNN.wav, cut from wave at its native rate and bit depth. Numbering
// starts at 1 and counts accepted clips only. The output directory is created
// if missing. ctx is checked between clips.
func (e *Exporter) Export(ctx context.Context, wave *audio.Waveform, spans []vad.Span) (Summary, error) {
	sum := Summary{Dir: e.dir, Detected: len(spans)}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return sum, fmt.Errorf("clip: create output dir %q: %w", e.dir, err)
	}

	log := observe.Logger(ctx)
	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		iv := IntervalOf(span, e.spanRate)
		switch Classify(iv, e.min, e.max) {
		case TooShort:
			sum.SkippedShort++
			e.metrics.RecordRejected(ctx, observe.ReasonShort)
			log.Debug("span below minimum duration", "segment", i+1, "duration", iv.Duration())
			continue
		case TooLong:
			sum.SkippedLong++
			e.metrics.RecordRejected(ctx, observe.ReasonLong)
			fmt.Fprintf(e.out, "  Warning: Segment %d is %.1fs (max %ss)\n", i+1, iv.Duration(), FormatSeconds(e.max))
			continue
		}

		n := sum.Saved + 1
		name := FileName(n)
		path := filepath.Join(e.dir, name)
		if err := audio.Write(path, wave.SliceSeconds(iv.Start, iv.End)); err != nil {
			return sum, fmt.Errorf("clip: write %s: %w", name, err)
		}
		sum.Saved = n
		sum.Paths = append(sum.Paths, path)
		e.metrics.RecordClip(ctx, iv.Duration())
		fmt.Fprintf(e.out, "  [%d] %s (%.1fs)\n", n, name, iv.Duration())
	}
	return sum, nil
}

// Report writes the end-of-run summary lines to w. Skip lines are only
// printed when nonzero.
func (s Summary) Report(w io.Writer, minSeconds, maxSeconds float64) {
	fmt.Fprintf(w, "\nSaved %d clips to %s/\n", s.Saved, s.Dir)
	if s.SkippedShort > 0 {
		fmt.Fprintf(w, "Skipped %d clips shorter than %ss\n", s.SkippedShort, FormatSeconds(minSeconds))
	}
	if s.SkippedLong > 0 {
		fmt.Fprintf(w, "Skipped %d clips longer than %ss\n", s.SkippedLong, FormatSeconds(maxSeconds))
	}
}
