package vad

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidSpan is returned by [Normalize] when a detector produced a span
// that is empty, inverted, or overlaps its predecessor.
var ErrInvalidSpan = errors.New("vad: invalid span")

// Span is a detected speech interval expressed as sample indices in the
// detector's sample space. Start is inclusive, End exclusive; Start < End.
type Span struct {
	Start int
	End   int
}

// Len returns the number of samples covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Params holds the detection parameters passed to a backend.
type Params struct {
	// SampleRate of the samples passed to Detect, in Hz. Silero supports 8000
	// and 16000.
	SampleRate int

	// Threshold is the speech probability above which a window counts as
	// speech. Range: [0.0, 1.0]. Higher is stricter.
	Threshold float64

	// MinSpeechDurationMs drops speech segments shorter than this.
	MinSpeechDurationMs int

	// MinSilenceDurationMs is the silence gap required before a segment is
	// closed. Shorter pauses are bridged.
	MinSilenceDurationMs int

	// SpeechPadMs is added before and after each detected segment.
	SpeechPadMs int
}

// DefaultParams returns the parameters voxclip uses unless configured
// otherwise: 16 kHz, threshold 0.5, 250 ms minimum speech, 300 ms minimum
// silence and 30 ms padding.
func DefaultParams() Params {
	return Params{
		SampleRate:           16000,
		Threshold:            0.5,
		MinSpeechDurationMs:  250,
		MinSilenceDurationMs: 300,
		SpeechPadMs:          30,
	}
}

// Validate reports every out-of-range field as a joined error.
func (p Params) Validate() error {
	var errs []error
	if p.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("vad: sample rate %d must be positive", p.SampleRate))
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		errs = append(errs, fmt.Errorf("vad: threshold %.2f is out of range [0, 1]", p.Threshold))
	}
	if p.MinSpeechDurationMs < 0 {
		errs = append(errs, fmt.Errorf("vad: min speech duration %dms must not be negative", p.MinSpeechDurationMs))
	}
	if p.MinSilenceDurationMs < 0 {
		errs = append(errs, fmt.Errorf("vad: min silence duration %dms must not be negative", p.MinSilenceDurationMs))
	}
	if p.SpeechPadMs < 0 {
		errs = append(errs, fmt.Errorf("vad: speech pad %dms must not be negative", p.SpeechPadMs))
	}
	return errors.Join(errs...)
}

// Normalize returns spans sorted by Start and checks that each span is
// non-empty and does not overlap the one before it. The input is not
// modified.
func Normalize(spans []Span) ([]Span, error) {
	out := slices.Clone(spans)
	slices.SortStableFunc(out, func(a, b Span) int { return a.Start - b.Start })
	for i, s := range out {
		if s.Start < 0 || s.Len() <= 0 {
			return nil, fmt.Errorf("%w: span %d [%d, %d)", ErrInvalidSpan, i, s.Start, s.End)
		}
		if i > 0 && s.Start < out[i-1].End {
			return nil, fmt.Errorf("%w: span %d [%d, %d) overlaps [%d, %d)",
				ErrInvalidSpan, i, s.Start, s.End, out[i-1].Start, out[i-1].End)
		}
	}
	return out, nil
}
