//go:build silero && cgo

package silero

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

const available = true

// Compile-time assertion that Detector satisfies vad.Detector.
var _ vad.Detector = (*Detector)(nil)

// Detector implements vad.Detector on top of the Silero ONNX model through
// github.com/streamer45/silero-vad-go. Requires cgo and the ONNX Runtime
// shared library at link and run time.
type Detector struct {
	mu     sync.Mutex
	sd     *speech.Detector
	params vad.Params
	closed bool
}

// New loads the model at modelPath and returns a Detector configured with
// params. Silero accepts 8000 or 16000 Hz input.
func New(modelPath string, params vad.Params) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.SampleRate != 8000 && params.SampleRate != 16000 {
		return nil, fmt.Errorf("silero: unsupported sample rate %d (want 8000 or 16000)", params.SampleRate)
	}

	start := time.Now()
	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           params.SampleRate,
		Threshold:            float32(params.Threshold),
		MinSilenceDurationMs: params.MinSilenceDurationMs,
		SpeechPadMs:          params.SpeechPadMs,
		LogLevel:             speech.LogLevelError,
	})
	if err != nil {
		return nil, fmt.Errorf("silero: create detector: %w", err)
	}
	slog.Debug("silero model loaded", "model", modelPath, "elapsed", time.Since(start))

	return &Detector{sd: sd, params: params}, nil
}

// Detect runs the model over the complete waveform. The library call is not
// interruptible; ctx is only checked before it starts.
func (d *Detector) Detect(ctx context.Context, samples []float32) ([]vad.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("silero: detector is closed")
	}

	if tooShort(len(samples), d.params.SampleRate) {
		return []vad.Span{}, nil
	}

	// The library keeps recurrent state between calls.
	if err := d.sd.Reset(); err != nil {
		return nil, fmt.Errorf("silero: reset: %w", err)
	}
	raw, err := d.sd.Detect(samples)
	if err != nil {
		return nil, fmt.Errorf("silero: detect: %w", err)
	}

	segs := make([]segment, len(raw))
	for i, s := range raw {
		segs[i] = segment{startAt: s.SpeechStartAt, endAt: s.SpeechEndAt}
	}
	return vad.Normalize(toSpans(segs, len(samples), d.params))
}

// Close destroys the underlying ONNX session. Safe to call more than once.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.sd.Destroy(); err != nil {
		return fmt.Errorf("silero: destroy: %w", err)
	}
	return nil
}
