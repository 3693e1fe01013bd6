// Package audio loads, converts, and writes the mono waveforms that voxclip
// segments.
//
// A [Waveform] holds normalised float64 samples in [-1, 1] together with the
// sample rate and bit depth of the file it came from. Decoding and encoding
// go through github.com/go-audio/wav; the conversion helpers in this package
// (downmix, resample, slice) are pure functions over sample slices and never
// mutate their input.
package audio

import (
	"fmt"
	"math"
	"time"
)

// DetectionRate is the sample rate, in Hz, that speech detectors expect.
const DetectionRate = 16000

// Waveform is a mono sequence of amplitude samples at a fixed sample rate.
// After [Load] a Waveform is treated as read-only; conversions return new
// values.
type Waveform struct {
	// Samples are normalised amplitudes in [-1, 1].
	Samples []float64

	// SampleRate is the number of samples per second (Hz). Always > 0.
	SampleRate int

	// BitDepth is the integer PCM bit depth of the source file (8, 16, 24 or
	// 32). Clips are written back with the same depth.
	BitDepth int
}

// Len returns the number of samples.
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// Duration returns the playback length of the waveform.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Seconds returns the playback length in seconds.
func (w *Waveform) Seconds() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Resample returns a new Waveform at targetRate. When the rates already
// match, the receiver is returned unchanged.
func (w *Waveform) Resample(targetRate int) *Waveform {
	if w.SampleRate == targetRate {
		return w
	}
	return &Waveform{
		Samples:    Resample(w.Samples, w.SampleRate, targetRate),
		SampleRate: targetRate,
		BitDepth:   w.BitDepth,
	}
}

// SliceSeconds returns the samples between start and end (in seconds). Offsets
// are mapped to sample indices with round(t * SampleRate) and clamped to the
// waveform bounds. The returned Waveform shares the receiver's backing array.
func (w *Waveform) SliceSeconds(start, end float64) *Waveform {
	from := w.index(start)
	to := w.index(end)
	if to < from {
		to = from
	}
	return &Waveform{
		Samples:    w.Samples[from:to:to],
		SampleRate: w.SampleRate,
		BitDepth:   w.BitDepth,
	}
}

func (w *Waveform) index(t float64) int {
	i := int(math.Round(t * float64(w.SampleRate)))
	if i < 0 {
		return 0
	}
	if i > len(w.Samples) {
		return len(w.Samples)
	}
	return i
}

// Float32 returns the samples converted to float32, the representation
// consumed by speech detectors.
func (w *Waveform) Float32() []float32 {
	out := make([]float32, len(w.Samples))
	for i, s := range w.Samples {
		out[i] = float32(s)
	}
	return out
}

// String returns a short human-readable description, e.g. "44100Hz 16-bit 3.2s".
func (w *Waveform) String() string {
	return fmt.Sprintf("%dHz %d-bit %.1fs", w.SampleRate, w.BitDepth, w.Seconds())
}
