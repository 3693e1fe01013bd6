package audio

// Downmix averages interleaved multi-channel samples into a mono sequence.
// Each output sample is the arithmetic mean of one frame (channels
// consecutive samples). A trailing partial frame is dropped. When channels is
// 1 the input is returned unchanged.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for _, s := range interleaved[i*channels : (i+1)*channels] {
			sum += s
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Resample converts samples from srcRate to dstRate using linear
// interpolation. If srcRate == dstRate (or either rate is not positive) the
// input is returned unchanged.
//
// The output length is floor(len(samples) * dstRate / srcRate). Output samples
// sit at evenly spaced fractional positions spanning [0, len(samples)-1] and
// take the value of the piecewise-linear function through the input samples
// at that position. This is not band-limited; it is only good enough for
// feeding a detector.
func Resample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate {
		return samples
	}
	if len(samples) == 0 {
		return []float64{}
	}

	// Integer arithmetic avoids float truncation at exact multiples.
	n := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if n <= 0 {
		return []float64{}
	}

	out := make([]float64, n)
	if n == 1 {
		out[0] = samples[0]
		return out
	}

	last := len(samples) - 1
	step := float64(last) / float64(n-1)
	for i := range n {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}
