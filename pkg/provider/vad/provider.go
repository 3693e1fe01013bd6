// Package vad defines the Detector interface for Voice Activity Detection
// backends.
//
// A Detector wraps a pretrained speech model (e.g., Silero VAD) and surfaces
// it as a single offline call: given a complete mono waveform at the
// configured sample rate, it returns the speech intervals it found as sample
// index spans. The model itself is an external collaborator; this package only
// fixes the shape of its inputs and outputs so that callers can be tested with
// a deterministic stub (see the mock sub-package).
//
// Detection is a single blocking call with no progress reporting. Any failure
// to load or invoke the model is reported as an error and is expected to end
// the run; there is no retry or fallback path.
package vad

import "context"

// Detector finds speech in a waveform. Implementations are not required to be
// safe for concurrent use.
type Detector interface {
	// Detect analyses samples (mono, normalised to [-1, 1], at the sample rate
	// the Detector was created with) and returns the detected speech spans,
	// sorted by start, non-overlapping, each with Start < End.
	Detect(ctx context.Context, samples []float32) ([]Span, error)

	// Close releases the model. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Factory creates a Detector configured with params. It is the seam between
// configuration (which picks a backend by name) and the pipeline (which only
// knows about Detector).
type Factory func(params Params) (Detector, error)
