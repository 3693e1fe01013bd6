package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

// sumFor returns the value of the int64 sum data point carrying key=value.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("metric %q has no data point with %s=%s", name, key, value)
	return 0
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"voxclip.stage.duration", m.StageDuration},
		{"voxclip.clip.duration", m.ClipDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, StageDetect, 1500*time.Millisecond)
	m.RecordStage(ctx, StageDetect, 500*time.Millisecond)
	m.RecordStage(ctx, StageLoad, 10*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "voxclip.stage.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	for _, dp := range hist.DataPoints {
		if v, ok := dp.Attributes.Value("stage"); ok && v.AsString() == StageDetect {
			if dp.Count != 2 {
				t.Errorf("detect count = %d, want 2", dp.Count)
			}
			if dp.Sum != 2.0 {
				t.Errorf("detect sum = %v, want 2.0", dp.Sum)
			}
			return
		}
	}
	t.Error("data point with stage=detect not found")
}

func TestRecordClip(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordClip(ctx, 1.25)
	m.RecordClip(ctx, 3.5)

	rm := collect(t, reader)
	met := findMetric(rm, "voxclip.clips.saved")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 2 {
		t.Errorf("clips saved data points = %+v, want single value 2", sum.DataPoints)
	}

	hist, ok := findMetric(rm, "voxclip.clip.duration").Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("clip duration is not a histogram")
	}
	if got := hist.DataPoints[0].Sum; got != 4.75 {
		t.Errorf("clip duration sum = %v, want 4.75", got)
	}
}

func TestRecordRejected(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRejected(ctx, ReasonShort)
	m.RecordRejected(ctx, ReasonShort)
	m.RecordRejected(ctx, ReasonLong)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voxclip.spans.rejected", "reason", ReasonShort); got != 2 {
		t.Errorf("short rejections = %d, want 2", got)
	}
	if got := sumFor(t, rm, "voxclip.spans.rejected", "reason", ReasonLong); got != 1 {
		t.Errorf("long rejections = %d, want 1", got)
	}
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, StatusOK)
	m.RecordRun(ctx, StatusError)
	m.RecordRun(ctx, StatusOK)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voxclip.runs", "status", StatusOK); got != 2 {
		t.Errorf("ok runs = %d, want 2", got)
	}
}

func TestRecordDetectorError(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDetectorError(ctx, "silero")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voxclip.detector.errors", "detector", "silero"); got != 1 {
		t.Errorf("detector errors = %d, want 1", got)
	}
}

func TestRecordAudio(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAudio(ctx, 5)
	m.RecordAudio(ctx, 2.5)

	rm := collect(t, reader)
	met := findMetric(rm, "voxclip.audio.processed")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[float64])
	if !ok {
		t.Fatal("metric is not a float64 sum")
	}
	if got := sum.DataPoints[0].Value; got != 7.5 {
		t.Errorf("audio processed = %v, want 7.5", got)
	}
}

func TestRecordSpans(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSpans(ctx, 3)
	m.RecordSpans(ctx, 0)
	m.RecordSpans(ctx, 4)

	rm := collect(t, reader)
	met := findMetric(rm, "voxclip.spans.detected")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not an int64 sum")
	}
	if got := sum.DataPoints[0].Value; got != 7 {
		t.Errorf("spans detected = %d, want 7", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
