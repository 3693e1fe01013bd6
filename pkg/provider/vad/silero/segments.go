package silero

import (
	"math"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

// windowSize returns the number of samples the model consumes per step.
// The library refuses input shorter than one window.
func windowSize(sampleRate int) int {
	if sampleRate == 8000 {
		return 256
	}
	return 512
}

// tooShort reports whether n samples are less than one model window, which
// can hold no detectable speech.
func tooShort(n, sampleRate int) bool {
	return n < windowSize(sampleRate)
}

// segment mirrors the library's speech segment: offsets in seconds, with a
// zero end marking speech still active when the audio ran out.
type segment struct {
	startAt float64
	endAt   float64
}

// toSpans converts library segments into sample-index spans at params.SampleRate.
// Unfinished segments end at totalSamples. Segments whose unpadded length is
// below params.MinSpeechDurationMs are dropped, since the library exposes no
// minimum-speech setting of its own. Leading padding is capped at the start
// of the audio, matching the library's clamp.
func toSpans(segs []segment, totalSamples int, params vad.Params) []vad.Span {
	rate := float64(params.SampleRate)
	minSpeech := params.MinSpeechDurationMs * params.SampleRate / 1000
	pad := params.SpeechPadMs * params.SampleRate / 1000

	spans := make([]vad.Span, 0, len(segs))
	for _, s := range segs {
		start := int(math.Round(s.startAt * rate))
		end := totalSamples
		if s.endAt > 0 {
			end = int(math.Round(s.endAt * rate))
		}
		start = max(start, 0)
		end = min(end, totalSamples)
		if start >= end {
			continue
		}
		if end-start-min(pad, start)-pad < minSpeech {
			continue
		}
		// Padding can push neighbours into each other; clip to the previous end.
		if n := len(spans); n > 0 && start < spans[n-1].End {
			start = spans[n-1].End
			if start >= end {
				continue
			}
		}
		spans = append(spans, vad.Span{Start: start, End: end})
	}
	return spans
}
