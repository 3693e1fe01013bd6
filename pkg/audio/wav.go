package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned when a file is not a WAV container or uses
// an encoding other than integer PCM.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Format tags of the fmt chunk.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Load reads the WAV file at path and returns its mono waveform at the
// file's native sample rate. Multi-channel files are downmixed by averaging.
func Load(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	w, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("audio: read %q: %w", path, err)
	}
	return w, nil
}

// Decode reads a WAV stream from r. See [Load].
func Decode(r io.ReadSeeker) (*Waveform, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: not a valid wav file", ErrUnsupportedFormat)
	}
	// WAVE_FORMAT_EXTENSIBLE is the usual container for 24-bit and
	// multi-channel PCM.
	switch dec.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
	default:
		return nil, fmt.Errorf("%w: wav encoding %#x (only integer PCM is supported)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = intToFloat(v, bitDepth)
	}

	return &Waveform{
		Samples:    Downmix(samples, channels),
		SampleRate: int(dec.SampleRate),
		BitDepth:   bitDepth,
	}, nil
}

// Write encodes w as a mono PCM WAV file at path, using w's sample rate and
// bit depth. An existing file at path is truncated.
func Write(path string, w *Waveform) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("audio: close %q: %w", path, cerr)
		}
	}()

	if err := Encode(f, w); err != nil {
		return fmt.Errorf("audio: write %q: %w", path, err)
	}
	return nil
}

// Encode writes w as a mono PCM WAV stream to out.
func Encode(out io.WriteSeeker, w *Waveform) error {
	bitDepth := w.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, w.SampleRate)
	}

	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		data[i] = floatToInt(s, bitDepth)
	}

	enc := wav.NewEncoder(out, w.SampleRate, bitDepth, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode pcm: %w", err)
	}
	return enc.Close()
}

// fullScale returns the magnitude of the most negative sample value for the
// given bit depth.
func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// intToFloat maps a decoded PCM integer to [-1, 1]. 8-bit WAV is unsigned
// with a 128 offset; all wider depths are signed.
func intToFloat(v, bitDepth int) float64 {
	if bitDepth == 8 {
		return float64(v-128) / 128
	}
	return float64(v) / fullScale(bitDepth)
}

// floatToInt is the inverse of intToFloat, clamping to the representable range.
func floatToInt(s float64, bitDepth int) int {
	scale := fullScale(bitDepth)
	v := math.Round(s * scale)
	if v > scale-1 {
		v = scale - 1
	} else if v < -scale {
		v = -scale
	}
	if bitDepth == 8 {
		return int(v) + 128
	}
	return int(v)
}
