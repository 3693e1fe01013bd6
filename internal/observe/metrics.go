// Package observe provides observability primitives for voxclip:
// OpenTelemetry metrics, tracing of the processing stages, and trace-aware
// structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is set up by [InitProvider]; since voxclip is a one-shot
// command the registry is dumped to a node-exporter textfile on shutdown
// instead of being scraped. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxclip metrics.
const meterName = "github.com/MrWong99/voxclip"

// Processing stages used as the "stage" attribute and as span names.
const (
	StageLoad     = "load"
	StageResample = "resample"
	StageDetect   = "detect"
	StageExport   = "export"
)

// Rejection reasons used as the "reason" attribute of SpansRejected.
const (
	ReasonShort = "short"
	ReasonLong  = "long"
)

// Run outcomes used as the "status" attribute of Runs.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks wall time per processing stage. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// ClipDuration tracks the length of every written clip.
	ClipDuration metric.Float64Histogram

	// --- Counters ---

	// SpansDetected counts speech spans returned by the detector.
	SpansDetected metric.Int64Counter

	// ClipsSaved counts clips written to disk.
	ClipsSaved metric.Int64Counter

	// SpansRejected counts spans dropped by the duration filter. Use with attribute:
	//   attribute.String("reason", "short"|"long")
	SpansRejected metric.Int64Counter

	// AudioProcessed accumulates the duration of processed input audio.
	AudioProcessed metric.Float64Counter

	// Runs counts completed runs. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	Runs metric.Int64Counter

	// --- Error counters ---

	// DetectorErrors counts detector creation and inference failures. Use with
	// attribute:
	//   attribute.String("detector", ...)
	DetectorErrors metric.Int64Counter
}

// stageBuckets defines histogram bucket boundaries (in seconds) for stage
// latencies. Model loading and long recordings push detection into seconds.
var stageBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// clipBuckets defines histogram bucket boundaries (in seconds) for clip
// lengths around the usual 0.5 to 10 second window.
var clipBuckets = []float64{
	0.25, 0.5, 1, 2, 3, 5, 7.5, 10, 15,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("voxclip.stage.duration",
		metric.WithDescription("Wall time of each processing stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ClipDuration, err = m.Float64Histogram("voxclip.clip.duration",
		metric.WithDescription("Length of written clips."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(clipBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SpansDetected, err = m.Int64Counter("voxclip.spans.detected",
		metric.WithDescription("Total speech spans returned by the detector."),
	); err != nil {
		return nil, err
	}
	if met.ClipsSaved, err = m.Int64Counter("voxclip.clips.saved",
		metric.WithDescription("Total clips written to disk."),
	); err != nil {
		return nil, err
	}
	if met.SpansRejected, err = m.Int64Counter("voxclip.spans.rejected",
		metric.WithDescription("Total spans dropped by the duration filter, by reason."),
	); err != nil {
		return nil, err
	}
	if met.AudioProcessed, err = m.Float64Counter("voxclip.audio.processed",
		metric.WithDescription("Total duration of processed input audio."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("voxclip.runs",
		metric.WithDescription("Total runs by outcome."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.DetectorErrors, err = m.Int64Counter("voxclip.detector.errors",
		metric.WithDescription("Total detector failures by detector."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStage records the duration of a processing stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordClip records a written clip of the given length in seconds.
func (m *Metrics) RecordClip(ctx context.Context, seconds float64) {
	m.ClipsSaved.Add(ctx, 1)
	m.ClipDuration.Record(ctx, seconds)
}

// RecordAudio records seconds of input audio loaded for processing.
func (m *Metrics) RecordAudio(ctx context.Context, seconds float64) {
	m.AudioProcessed.Add(ctx, seconds)
}

// RecordSpans records the number of speech spans the detector reported.
func (m *Metrics) RecordSpans(ctx context.Context, n int) {
	m.SpansDetected.Add(ctx, int64(n))
}

// RecordRejected records a span dropped by the duration filter.
func (m *Metrics) RecordRejected(ctx context.Context, reason string) {
	m.SpansRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordRun records the outcome of a run.
func (m *Metrics) RecordRun(ctx context.Context, status string) {
	m.Runs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordDetectorError records a detector failure.
func (m *Metrics) RecordDetectorError(ctx context.Context, detector string) {
	m.DetectorErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("detector", detector)),
	)
}
