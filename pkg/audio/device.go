// Package audio defines the capture-device abstraction and the PCM/WAV
// helpers shared by the recorder and the speech-to-text engines.
//
// The two primary abstractions are:
//
//   - [Device] opens an input stream for a given [StreamConfig].
//   - [Stream] delivers fixed-size blocks of raw PCM until it is closed.
//
// Implementations live in adapter packages (audio/portaudio for real
// hardware, audio/mock for tests).
package audio

import (
	"errors"
	"fmt"
)

// ErrDevice classifies failures of the audio device: opening, starting, or
// reading a stream. Callers test for it with [errors.Is].
var ErrDevice = errors.New("audio device error")

// BitDepth is the only supported sample width: 16-bit signed little-endian PCM.
const BitDepth = 16

// BytesPerSample is the byte width of one sample at [BitDepth].
const BytesPerSample = BitDepth / 8

// Format describes the sample rate and channel count of an audio stream.
// Samples are always 16-bit signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameBytes returns the number of bytes occupied by n frames in this format.
func (f Format) FrameBytes(n int) int {
	return n * f.Channels * BytesPerSample
}

// String returns a human-readable description, e.g. "16000Hz mono".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// StreamConfig describes the input stream requested from a [Device].
type StreamConfig struct {
	Format

	// ChunkFrames is the number of frames delivered by each [Stream.Read].
	ChunkFrames int
}

// Validate reports whether c describes a stream the recorder can handle.
func (c StreamConfig) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channel count must be positive, got %d", c.Channels))
	}
	if c.ChunkFrames <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkFrames))
	}
	return errors.Join(errs...)
}

// Stream is an open input stream. A Stream is owned by a single goroutine;
// implementations need not be safe for concurrent use.
type Stream interface {
	// Read blocks until frames frames have been captured and returns them as
	// raw interleaved PCM. The returned slice is owned by the caller.
	Read(frames int) ([]byte, error)

	// Close stops the stream and releases the device. Calling Close more
	// than once is safe and returns nil.
	Close() error
}

// Device is the entry point for an audio input subsystem.
type Device interface {
	// Open acquires the device and starts a stream in the requested format.
	// The caller owns the returned Stream and must Close it.
	Open(cfg StreamConfig) (Stream, error)
}
