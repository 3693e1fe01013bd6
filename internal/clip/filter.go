// Package clip filters detected speech spans by duration and writes the
// accepted ones as numbered WAV files.
package clip

import (
	"strconv"
	"strings"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

// Verdict is the outcome of the duration filter for one span.
type Verdict int

const (
	// Accept means the span is within [min, max] and becomes a clip.
	Accept Verdict = iota

	// TooShort means the span is below the minimum duration.
	TooShort

	// TooLong means the span exceeds the maximum duration.
	TooLong
)

// String returns the lower-case name of v.
func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case TooShort:
		return "short"
	case TooLong:
		return "long"
	default:
		return "Verdict(" + strconv.Itoa(int(v)) + ")"
	}
}

// Interval is a span expressed in seconds.
type Interval struct {
	Start float64
	End   float64
}

// IntervalOf converts a span of sample indices at rate Hz into seconds.
func IntervalOf(s vad.Span, rate int) Interval {
	r := float64(rate)
	return Interval{Start: float64(s.Start) / r, End: float64(s.End) / r}
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Classify applies the duration bounds to iv. Both bounds are inclusive.
func Classify(iv Interval, minSeconds, maxSeconds float64) Verdict {
	d := iv.Duration()
	switch {
	case d < minSeconds:
		return TooShort
	case d > maxSeconds:
		return TooLong
	default:
		return Accept
	}
}

// FileName returns the name of the n-th accepted clip, e.g. clip_007.wav.
// Numbers above 999 widen the field.
func FileName(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 3 {
		s = strings.Repeat("0", 3-len(s)) + s
	}
	return "clip_" + s + ".wav"
}

// FormatSeconds renders a duration bound the way it appears in user-facing
// messages: shortest representation, always with a fractional part
// (10 -> "10.0", 0.25 -> "0.25").
func FormatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
