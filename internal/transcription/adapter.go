// Package transcription converts a recorded audio artifact into text by
// delegating to a speech-to-text engine.
//
// The [Adapter] owns no engine state between calls: every Transcribe builds a
// fresh engine from its [Factory], runs exactly one transcription, and
// releases the engine. Failures surface as [stt.ErrEngine]; there are no
// retries and no fallback engine.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrWong99/hesitate/internal/recorder"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// Factory constructs an engine for the given model selector.
type Factory func(model string) (stt.Provider, error)

// Option is a functional option for configuring an Adapter.
type Option func(*Adapter)

// WithLanguage sets the language hint forwarded to the engine.
func WithLanguage(lang string) Option {
	return func(a *Adapter) {
		a.language = lang
	}
}

// Adapter bridges recorder artifacts to an STT engine.
type Adapter struct {
	factory  Factory
	model    string
	language string
}

// New returns an Adapter that builds engines with factory for model.
func New(factory Factory, model string, opts ...Option) (*Adapter, error) {
	if factory == nil {
		return nil, errors.New("transcription: factory must not be nil")
	}
	a := &Adapter{factory: factory, model: model}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Model returns the configured model selector.
func (a *Adapter) Model() string { return a.model }

// Transcribe returns the text the engine produced for art. Empty text is a
// valid result. The artifact file is passed to the engine unchanged.
func (a *Adapter) Transcribe(ctx context.Context, art *recorder.Artifact) (_ stt.Transcript, err error) {
	if art == nil {
		return stt.Transcript{}, fmt.Errorf("transcription: %w: nil artifact", stt.ErrEngine)
	}

	engine, err := a.factory(a.model)
	if err != nil {
		return stt.Transcript{}, wrap("load engine", err)
	}
	if c, ok := engine.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = wrap("release engine", cerr)
			}
		}()
	}

	start := time.Now()
	t, err := engine.Transcribe(ctx, stt.Request{
		Path:     art.Path,
		Format:   art.Format,
		Language: a.language,
	})
	if err != nil {
		return stt.Transcript{}, wrap("transcribe", err)
	}

	slog.Debug("transcription complete",
		"session_id", art.Session.ID,
		"model", a.model,
		"chars", len(t.Text),
		"elapsed", time.Since(start),
	)
	return t, nil
}

// wrap tags err with stt.ErrEngine unless it already carries it.
func wrap(op string, err error) error {
	if errors.Is(err, stt.ErrEngine) {
		return fmt.Errorf("transcription: %s: %w", op, err)
	}
	return fmt.Errorf("transcription: %s: %w: %w", op, stt.ErrEngine, err)
}
