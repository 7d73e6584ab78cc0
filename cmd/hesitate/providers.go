package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/hesitate/internal/config"
	"github.com/MrWong99/hesitate/internal/transcription"
	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/audio/portaudio"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
	"github.com/MrWong99/hesitate/pkg/provider/stt/deepgram"
	oaistt "github.com/MrWong99/hesitate/pkg/provider/stt/openai"
	"github.com/MrWong99/hesitate/pkg/provider/stt/whisper"
)

// registerBuiltinProviders registers every engine and device compiled into
// the binary.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if d, err := optDuration(entry.Options, "timeout"); err != nil {
			return nil, err
		} else if d > 0 {
			opts = append(opts, whisper.WithTimeout(d))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		dir := config.OptString(entry.Options, "model_dir")
		if dir == "" {
			dir = config.DefaultModelDir
		}
		return whisper.NewNative(whisper.ModelPath(dir, entry.Model))
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if org := config.OptString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaistt.WithOrganization(org))
		}
		if d, err := optDuration(entry.Options, "timeout"); err != nil {
			return nil, err
		} else if d > 0 {
			opts = append(opts, oaistt.WithTimeout(d))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterAudio("portaudio", func(entry config.ProviderEntry) (audio.Device, error) {
		return portaudio.New(portaudio.WithDeviceName(config.OptString(entry.Options, "device_name"))), nil
	})

	for _, name := range reg.STTNames() {
		slog.Debug("registered provider", "kind", "stt", "name", name)
	}
}

// engineFactory returns a [transcription.Factory] that builds the configured
// engine through reg. The model selector the adapter passes in replaces the
// entry's model, so each call yields a freshly loaded engine for that model.
func engineFactory(reg *config.Registry, entry config.ProviderEntry) (transcription.Factory, error) {
	if !reg.HasSTT(entry.Name) {
		return nil, fmt.Errorf("%w: stt/%q (available: %v)", config.ErrProviderNotRegistered, entry.Name, reg.STTNames())
	}
	return func(model string) (stt.Provider, error) {
		e := entry
		e.Model = model
		return reg.CreateSTT(e)
	}, nil
}

// optDuration parses a Go duration string option. An absent key yields 0.
func optDuration(opts map[string]any, key string) (time.Duration, error) {
	s := config.OptString(opts, key)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return d, nil
}
