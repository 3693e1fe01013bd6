package audio_test

import (
	"math"
	"testing"

	"github.com/MrWong99/voxclip/pkg/audio"
)

func TestDownmix_Mono(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out := audio.Downmix(in, 1)
	if &out[0] != &in[0] {
		t.Error("expected same slice for mono input")
	}
}

func TestDownmix_FrameMean(t *testing.T) {
	tests := []struct {
		name     string
		in       []float64
		channels int
		want     []float64
	}{
		{
			name:     "stereo",
			in:       []float64{0.2, 0.4, -0.5, 0.5, 1, 1},
			channels: 2,
			want:     []float64{0.3, 0, 1},
		},
		{
			name:     "three channels",
			in:       []float64{0.3, 0.6, 0.9, -0.3, -0.3, -0.3},
			channels: 3,
			want:     []float64{0.6, -0.3},
		},
		{
			name:     "partial trailing frame dropped",
			in:       []float64{0.5, 0.5, 0.25},
			channels: 2,
			want:     []float64{0.5},
		},
		{
			name:     "empty",
			in:       nil,
			channels: 2,
			want:     []float64{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := audio.Downmix(tc.in, tc.channels)
			if len(got) != len(tc.want) {
				t.Fatalf("length mismatch: got %d, want %d", len(got), len(tc.want))
			}
			for i := range tc.want {
				if math.Abs(got[i]-tc.want[i]) > 1e-12 {
					t.Errorf("sample %d: got %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestResample_SameRateIsIdentity(t *testing.T) {
	in := []float64{0.1, -0.2, 0.3, 0.4}
	out := audio.Resample(in, audio.DetectionRate, audio.DetectionRate)
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	if &out[0] != &in[0] {
		t.Error("expected same slice for matching rates")
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestResample_Length(t *testing.T) {
	rates := []int{8000, 11025, 22050, 24000, 44100, 48000, 96000}
	lengths := []int{1, 7, 441, 12345, 48000}
	for _, rate := range rates {
		for _, n := range lengths {
			in := make([]float64, n)
			out := audio.Resample(in, rate, audio.DetectionRate)
			want := int(math.Round(float64(n) / float64(rate) * audio.DetectionRate))
			if d := len(out) - want; d < -1 || d > 1 {
				t.Errorf("rate=%d len=%d: got %d samples, want %d±1", rate, n, len(out), want)
			}
		}
	}
}

func TestResample_Upsample(t *testing.T) {
	// 2 samples at 8kHz → 4 samples at 16kHz spanning [0, 1].
	out := audio.Resample([]float64{0, 0.9}, 8000, 16000)
	want := []float64{0, 0.3, 0.6, 0.9}
	if len(out) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	// 6 samples at 48kHz → 2 samples at 16kHz: first and last input samples.
	out := audio.Resample([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, 48000, 16000)
	want := []float64{0.1, 0.6}
	if len(out) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestResample_LinearRampStaysLinear(t *testing.T) {
	in := make([]float64, 4410)
	for i := range in {
		in[i] = float64(i) / float64(len(in)-1)
	}
	out := audio.Resample(in, 44100, 16000)
	if len(out) != 1600 {
		t.Fatalf("expected 1600 samples, got %d", len(out))
	}
	for i, v := range out {
		want := float64(i) / float64(len(out)-1)
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("sample %d: got %v, want %v", i, v, want)
		}
	}
}

func TestResample_EmptyInput(t *testing.T) {
	out := audio.Resample(nil, 44100, 16000)
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestResample_InvalidRates(t *testing.T) {
	in := []float64{0.1, 0.2}
	if out := audio.Resample(in, 0, 16000); len(out) != len(in) {
		t.Errorf("srcRate=0: expected passthrough, got %d samples", len(out))
	}
	if out := audio.Resample(in, 16000, -1); len(out) != len(in) {
		t.Errorf("dstRate=-1: expected passthrough, got %d samples", len(out))
	}
}
