// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// SampleRate is the only input rate whisper.cpp accepts.
const SampleRate = 16000

// Compile-time assertions that NativeProvider satisfies stt.Provider and
// io.Closer.
var (
	_ stt.Provider = (*NativeProvider)(nil)
	_ io.Closer    = (*NativeProvider)(nil)
)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO). The model is loaded once in NewNative and released by Close.
type NativeProvider struct {
	model    whisperlib.Model
	language string
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the language code for transcription
// (e.g., "en", "es"). Defaults to "auto".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// ModelPath resolves a model selector to a ggml model file. A selector that
// names an existing file or contains a path separator is returned unchanged;
// a bare variant name such as "base" maps to dir/ggml-base.bin.
func ModelPath(dir, model string) string {
	if model == "" {
		model = DefaultModel
	}
	if strings.ContainsRune(model, os.PathSeparator) || strings.HasSuffix(model, ".bin") {
		return model
	}
	return filepath.Join(dir, "ggml-"+model+".bin")
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// modelPath. The caller must call Close when the provider is no longer
// needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w: load model %q: %w", stt.ErrEngine, modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: "auto",
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file at req.Path and runs whisper.cpp inference
// on it in a fresh context. All failures wrap [stt.ErrEngine].
func (p *NativeProvider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: %w", stt.ErrEngine, err)
	}

	format, pcm, err := readWAV(req.Path)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: %w", stt.ErrEngine, err)
	}
	if format.SampleRate != SampleRate {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: sample rate %d Hz unsupported, need %d Hz",
			stt.ErrEngine, format.SampleRate, SampleRate)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	start := time.Now()
	text, err := p.infer(audio.ToFloat32Mono(pcm, format.Channels), lang)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: %w", stt.ErrEngine, err)
	}
	slog.Debug("whisper: native inference done", "path", req.Path, "elapsed", time.Since(start))

	return stt.Transcript{Text: text, Language: lang}, nil
}

func readWAV(path string) (audio.Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Format{}, nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()
	return audio.DecodeWAV(f)
}

// infer runs whisper.cpp inference using a fresh context and returns the
// concatenated segment text.
func (p *NativeProvider) infer(samples []float32, lang string) (string, error) {
	// Contexts are not thread-safe; the model can be shared.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}

	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
