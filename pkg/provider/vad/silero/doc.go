// Package silero provides the Silero VAD backend for the vad package.
//
// The detector links against ONNX Runtime through
// github.com/streamer45/silero-vad-go and is only compiled with the silero
// build tag and cgo enabled:
//
//	go build -tags silero ./cmd/voxclip
//
// Other builds get a stub whose constructor returns [ErrUnavailable].
//
// The ONNX model file is resolved by [ModelCache]: an explicit path is used as
// is, otherwise the model is downloaded once and kept in the user cache
// directory for later runs.
//
// Usage:
//
//	cache := &silero.ModelCache{URL: silero.DefaultModelURL}
//	path, err := cache.Path(ctx)
//	det, err := silero.New(path, vad.DefaultParams())
//	defer det.Close()
//	spans, err := det.Detect(ctx, samples16k)
package silero

import "errors"

// Name is the registry name of this backend.
const Name = "silero"

// Available reports whether this binary was built with the Silero detector.
func Available() bool { return available }

// ErrUnavailable is returned when the binary was built without Silero support.
var ErrUnavailable = errors.New("silero: detector unavailable (build with -tags silero and cgo)")
