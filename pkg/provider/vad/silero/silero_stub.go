//go:build !silero || !cgo

package silero

import (
	"context"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

const available = false

var _ vad.Detector = (*Detector)(nil)

// Detector is unavailable unless built with -tags silero and cgo enabled.
type Detector struct{}

// New always fails with ErrUnavailable.
func New(string, vad.Params) (*Detector, error) {
	return nil, ErrUnavailable
}

// Detect always fails with ErrUnavailable.
func (*Detector) Detect(context.Context, []float32) ([]vad.Span, error) {
	return nil, ErrUnavailable
}

// Close is a no-op.
func (*Detector) Close() error { return nil }
