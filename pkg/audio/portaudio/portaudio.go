// Package portaudio provides an [audio.Device] backed by the PortAudio C
// library through github.com/gordonklaus/portaudio.
//
// The PortAudio shared library and headers must be available at build time
// (CGO_ENABLED=1). Each opened stream owns one Initialize/Terminate pair, so
// the library is released together with the stream.
package portaudio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/MrWong99/hesitate/pkg/audio"
)

// Compile-time assertion that Device implements audio.Device.
var _ audio.Device = (*Device)(nil)

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithDeviceName selects the input device whose PortAudio name equals name.
// When empty (the default) the host's default input device is used.
func WithDeviceName(name string) Option {
	return func(d *Device) {
		d.deviceName = name
	}
}

// Device opens PortAudio input streams.
type Device struct {
	deviceName string
}

// New returns a Device configured with the supplied options.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Open initialises PortAudio, opens a blocking int16 input stream in the
// requested format, and starts it. Any failure is wrapped with
// [audio.ErrDevice] and leaves no PortAudio resources behind.
func (d *Device) Open(cfg audio.StreamConfig) (audio.Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("portaudio: %w: %w", audio.ErrDevice, err)
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w: initialise: %w", audio.ErrDevice, err)
	}

	buf := make([]int16, cfg.ChunkFrames*cfg.Channels)
	raw, err := d.openStream(cfg, buf)
	if err != nil {
		_ = pa.Terminate()
		return nil, fmt.Errorf("portaudio: %w: open stream: %w", audio.ErrDevice, err)
	}
	if err := raw.Start(); err != nil {
		_ = raw.Close()
		_ = pa.Terminate()
		return nil, fmt.Errorf("portaudio: %w: start stream: %w", audio.ErrDevice, err)
	}

	slog.Debug("portaudio stream started",
		"device", d.deviceName,
		"format", cfg.Format.String(),
		"chunk_frames", cfg.ChunkFrames,
	)
	return &stream{raw: raw, buf: buf, frames: cfg.ChunkFrames}, nil
}

func (d *Device) openStream(cfg audio.StreamConfig, buf []int16) (*pa.Stream, error) {
	if d.deviceName == "" {
		return pa.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.ChunkFrames, buf)
	}

	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, info := range devices {
		if info.Name != d.deviceName || info.MaxInputChannels < cfg.Channels {
			continue
		}
		params := pa.StreamParameters{
			Input: pa.StreamDeviceParameters{
				Device:   info,
				Channels: cfg.Channels,
				Latency:  info.DefaultLowInputLatency,
			},
			SampleRate:      float64(cfg.SampleRate),
			FramesPerBuffer: cfg.ChunkFrames,
		}
		return pa.OpenStream(params, buf)
	}
	return nil, fmt.Errorf("no input device named %q with %d channel(s)", d.deviceName, cfg.Channels)
}

// stream is a started PortAudio input stream. It implements audio.Stream.
type stream struct {
	raw    *pa.Stream
	buf    []int16
	frames int

	once     sync.Once
	closeErr error
}

// Read blocks for one PortAudio buffer. frames must equal the chunk size the
// stream was opened with. Input overflow is reported as an error.
func (s *stream) Read(frames int) ([]byte, error) {
	if frames != s.frames {
		return nil, fmt.Errorf("portaudio: %w: read of %d frames on a %d-frame stream", audio.ErrDevice, frames, s.frames)
	}
	if err := s.raw.Read(); err != nil {
		return nil, fmt.Errorf("portaudio: %w: read: %w", audio.ErrDevice, err)
	}
	return audio.Int16ToBytes(s.buf), nil
}

// Close stops and closes the stream and terminates PortAudio. Safe to call
// more than once.
func (s *stream) Close() error {
	s.once.Do(func() {
		s.closeErr = errors.Join(s.raw.Stop(), s.raw.Close(), pa.Terminate())
	})
	return s.closeErr
}
