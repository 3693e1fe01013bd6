// Package mock provides test doubles for the vad package interfaces.
//
// Use Detector to return a fixed set of spans and inspect the samples that were
// submitted. Use Factory to verify that detectors are created with the
// expected Params.
//
// Example:
//
//	det := &mock.Detector{Spans: []vad.Span{{Start: 16000, End: 20800}}}
//	fac := &mock.Factory{Detector: det}
//	d, _ := fac.New(vad.DefaultParams())
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

// DetectCall records a single invocation of Detector.Detect.
type DetectCall struct {
	// Samples is a copy of the slice passed to Detect.
	Samples []float32
}

// Detector is a mock implementation of vad.Detector.
type Detector struct {
	mu sync.Mutex

	// Spans is returned by every Detect call.
	Spans []vad.Span

	// DetectErr, if non-nil, is returned by every Detect call.
	DetectErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// DetectCalls records every call to Detect in order.
	DetectCalls []DetectCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Detect records the call and returns Spans, DetectErr.
func (d *Detector) Detect(_ context.Context, samples []float32) ([]vad.Span, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	d.DetectCalls = append(d.DetectCalls, DetectCall{Samples: cp})
	if d.DetectErr != nil {
		return nil, d.DetectErr
	}
	return d.Spans, nil
}

// Close records the call and returns CloseErr.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	return d.CloseErr
}

// Ensure Detector implements vad.Detector at compile time.
var _ vad.Detector = (*Detector)(nil)

// Factory hands out Detector and records the Params it was asked for.
type Factory struct {
	mu sync.Mutex

	// Detector is returned by New. If nil, New returns a new default Detector.
	Detector *Detector

	// NewErr, if non-nil, is returned as the error from New.
	NewErr error

	// NewCalls records the Params of every call to New in order.
	NewCalls []vad.Params
}

// New records the call and returns Detector, NewErr. It has the signature of
// vad.Factory so that f.New can be passed wherever a factory is expected.
func (f *Factory) New(params vad.Params) (vad.Detector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NewCalls = append(f.NewCalls, params)
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	if f.Detector == nil {
		f.Detector = &Detector{}
	}
	return f.Detector, nil
}

// Ensure Factory.New satisfies vad.Factory at compile time.
var _ vad.Factory = (*Factory)(nil).New
