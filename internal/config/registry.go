package config

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MrWong99/voxclip/pkg/provider/vad"
)

// ErrDetectorNotRegistered is returned by [Registry.CreateDetector] when no
// factory has been registered under the requested name.
var ErrDetectorNotRegistered = errors.New("config: detector not registered")

// DetectorFactory builds a detector from its config block and the effective
// detection parameters.
type DetectorFactory func(entry DetectorConfig, params vad.Params) (vad.Detector, error)

// Registry maps detector names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]DetectorFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		detectors: make(map[string]DetectorFactory),
	}
}

// RegisterDetector registers a detector factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterDetector(name string, factory DetectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[name] = factory
}

// CreateDetector instantiates a detector using the factory registered under
// entry.Name. Returns [ErrDetectorNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateDetector(entry DetectorConfig, params vad.Params) (vad.Detector, error) {
	r.mu.RLock()
	factory, ok := r.detectors[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDetectorNotRegistered, entry.Name)
	}
	return factory(entry, params)
}

// VADFactory binds entry to the registry and returns a [vad.Factory] for it.
func (r *Registry) VADFactory(entry DetectorConfig) vad.Factory {
	return func(params vad.Params) (vad.Detector, error) {
		return r.CreateDetector(entry, params)
	}
}

// Detectors returns the registered detector names in sorted order.
func (r *Registry) Detectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
