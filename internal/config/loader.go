package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":   {"whisper", "whisper-native", "openai", "deepgram"},
	"audio": {"portaudio"},
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default
// ".env") into the process environment. Variables that are already set are
// not overridden, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("config: no env file", "path", p)
				continue
			}
			return fmt.Errorf("config: load env file %q: %w", p, err)
		}
		slog.Debug("config: loaded env file", "path", p)
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references in
// string values, applies defaults, and validates the result. An empty
// document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	expandEnv(cfg)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the validated default configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// expandEnv replaces ${VAR} and $VAR references in the fields that commonly
// carry secrets or host-specific paths.
func expandEnv(cfg *Config) {
	for _, s := range []*string{
		&cfg.Recording.OutputDir,
		&cfg.Hesitation.LexiconFile,
		&cfg.Telemetry.MetricsAddr,
	} {
		*s = os.ExpandEnv(*s)
	}
	expandEntry(&cfg.Transcription)
	expandEntry(&cfg.Recording.Device)
}

func expandEntry(e *ProviderEntry) {
	e.APIKey = os.ExpandEnv(e.APIKey)
	e.BaseURL = os.ExpandEnv(e.BaseURL)
	e.Model = os.ExpandEnv(e.Model)
	for k, v := range e.Options {
		if s, ok := v.(string); ok {
			e.Options[k] = os.ExpandEnv(s)
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	r := cfg.Recording
	if r.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("recording.sample_rate %d must be positive", r.SampleRate))
	}
	if r.Channels < 0 {
		errs = append(errs, fmt.Errorf("recording.channels %d must be positive", r.Channels))
	}
	if r.ChunkFrames < 0 {
		errs = append(errs, fmt.Errorf("recording.chunk_frames %d must be positive", r.ChunkFrames))
	}

	validateProviderName("stt", cfg.Transcription.Name)
	validateProviderName("audio", cfg.Recording.Device.Name)

	t := cfg.Transcription
	switch t.Name {
	case "whisper":
		if t.BaseURL == "" {
			errs = append(errs, errors.New("transcription.base_url is required for the whisper engine"))
		}
	case "openai", "deepgram":
		if t.APIKey == "" {
			errs = append(errs, fmt.Errorf("transcription.api_key is required for the %s engine", t.Name))
		}
	case "whisper-native":
		if r.SampleRate != 0 && r.SampleRate != DefaultSampleRate {
			errs = append(errs, fmt.Errorf("recording.sample_rate %d is unsupported by whisper-native; use %d", r.SampleRate, DefaultSampleRate))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
