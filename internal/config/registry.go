package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	stt   map[string]func(ProviderEntry) (stt.Provider, error)
	audio map[string]func(ProviderEntry) (audio.Device, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:   make(map[string]func(ProviderEntry) (stt.Provider, error)),
		audio: make(map[string]func(ProviderEntry) (audio.Device, error)),
	}
}

// RegisterSTT registers an STT provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterAudio registers an audio device factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Device, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateSTT instantiates an STT provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAudio instantiates an audio device using the factory registered under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Device, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// HasSTT reports whether an STT factory is registered under name.
func (r *Registry) HasSTT(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stt[name]
	return ok
}

// STTNames returns the registered STT provider names in sorted order.
func (r *Registry) STTNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stt))
	for n := range r.stt {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
