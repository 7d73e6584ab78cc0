// Package config provides the configuration schema, loader, and provider registry
// for the hesitate recorder.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults] to zero-valued fields.
const (
	DefaultSampleRate  = 16000
	DefaultChannels    = 1
	DefaultChunkFrames = 1024
	DefaultOutputDir   = "output_transcription"
	DefaultSTTName     = "whisper-native"
	DefaultModelDir    = "models"
	DefaultDeviceName  = "portaudio"
	DefaultServiceName = "hesitate"
	DefaultLogLevel    = LogInfo
	defaultWhisperURL  = "http://localhost:8080"
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
// Every field is optional.
type Config struct {
	Log           LogConfig        `yaml:"log"`
	Recording     RecordingConfig  `yaml:"recording"`
	Transcription ProviderEntry    `yaml:"transcription"`
	Hesitation    HesitationConfig `yaml:"hesitation"`
	Telemetry     TelemetryConfig  `yaml:"telemetry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level controls verbosity. Default: info.
	Level LogLevel `yaml:"level"`
}

// RecordingConfig describes the capture format and where artifacts go.
type RecordingConfig struct {
	// SampleRate is the capture rate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the capture channel count. Default: 1 (mono).
	Channels int `yaml:"channels"`

	// ChunkFrames is the number of frames per device read. Default: 1024.
	ChunkFrames int `yaml:"chunk_frames"`

	// OutputDir receives the WAV and transcript artifacts.
	// Default: output_transcription.
	OutputDir string `yaml:"output_dir"`

	// Device selects the registered audio device implementation and, through
	// its options, the physical input.
	Device ProviderEntry `yaml:"device"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "base", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// HesitationConfig controls marker detection.
type HesitationConfig struct {
	// LexiconFile replaces the built-in lexicon with a YAML marker list.
	LexiconFile string `yaml:"lexicon_file"`

	// FoldQuotes makes typographic apostrophes match ASCII ones.
	FoldQuotes bool `yaml:"fold_quotes"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics at /metrics on this
	// address for the duration of the run (e.g., ":9464").
	MetricsAddr string `yaml:"metrics_addr"`

	// ServiceName is reported in telemetry resources. Default: hesitate.
	ServiceName string `yaml:"service_name"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	r := &cfg.Recording
	if r.SampleRate == 0 {
		r.SampleRate = DefaultSampleRate
	}
	if r.Channels == 0 {
		r.Channels = DefaultChannels
	}
	if r.ChunkFrames == 0 {
		r.ChunkFrames = DefaultChunkFrames
	}
	if r.OutputDir == "" {
		r.OutputDir = DefaultOutputDir
	}
	if r.Device.Name == "" {
		r.Device.Name = DefaultDeviceName
	}
	if cfg.Transcription.Name == "" {
		cfg.Transcription.Name = DefaultSTTName
	}
	if cfg.Transcription.Name == "whisper" && cfg.Transcription.BaseURL == "" {
		cfg.Transcription.BaseURL = defaultWhisperURL
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

// OptString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func OptString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
