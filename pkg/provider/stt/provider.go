// Package stt defines the Provider interface for speech-to-text engines.
//
// An STT provider wraps a transcription engine (a whisper.cpp server, the
// whisper.cpp library loaded in-process, or a hosted API) behind a single
// batch call: hand over a finished audio artifact, get its text back. The
// pipeline depends only on this interface so engines can be swapped without
// touching capture or detection.
//
// Providers that hold native resources (loaded models) also implement
// io.Closer; callers close them when done.
package stt

import (
	"context"
	"errors"

	"github.com/MrWong99/hesitate/pkg/audio"
)

// ErrEngine classifies every failure reported by a transcription engine:
// unreadable input, unsupported format, transport errors, and internal engine
// errors. Callers test for it with [errors.Is].
var ErrEngine = errors.New("speech-to-text engine error")

// Request describes the audio artifact to transcribe.
type Request struct {
	// Path is the filesystem location of the WAV artifact. Engines pass the
	// file through unchanged where their API accepts a container.
	Path string

	// Format is the artifact's header format, for engines that need raw PCM
	// parameters.
	Format audio.Format

	// Language is an optional BCP-47 hint (e.g., "en", "es"). Empty leaves
	// the engine's configured default in place.
	Language string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts the audio artifact in req to text. It performs no
	// retries; any failure is returned to the caller.
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}
