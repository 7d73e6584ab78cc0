package whisper_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
	"github.com/MrWong99/hesitate/pkg/provider/stt/whisper"
)

// testModelPath returns the path to a whisper model for integration tests.
// It reads from the WHISPER_MODEL_PATH environment variable. If unset the
// test is skipped.
func testModelPath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("WHISPER_MODEL_PATH")
	if p == "" {
		t.Skip("WHISPER_MODEL_PATH not set; skipping native whisper test")
	}
	return p
}

func TestNewNative_EmptyPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("")
	if err == nil {
		t.Fatal("expected error for empty model path, got nil")
	}
}

func TestNewNative_InvalidPath_ReturnsEngineError(t *testing.T) {
	_, err := whisper.NewNative("/nonexistent/path/to/model.bin")
	if !errors.Is(err, stt.ErrEngine) {
		t.Fatalf("error = %v, want ErrEngine", err)
	}
}

func TestModelPath(t *testing.T) {
	tests := []struct {
		dir, model, want string
	}{
		{"models", "base", filepath.Join("models", "ggml-base.bin")},
		{"models", "", filepath.Join("models", "ggml-base.bin")},
		{"models", "small.en", filepath.Join("models", "ggml-small.en.bin")},
		{"models", "custom.bin", "custom.bin"},
		{"models", "/opt/whisper/ggml-large.bin", "/opt/whisper/ggml-large.bin"},
	}
	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			if got := whisper.ModelPath(tc.dir, tc.model); got != tc.want {
				t.Errorf("ModelPath(%q, %q) = %q, want %q", tc.dir, tc.model, got, tc.want)
			}
		})
	}
}

func TestNativeTranscribe_Silence(t *testing.T) {
	p, err := whisper.NewNative(testModelPath(t), whisper.WithNativeLanguage("en"))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	path := writeWAV(t, make([]byte, whisper.SampleRate*2), audio.Format{SampleRate: whisper.SampleRate, Channels: 1})
	if _, err := p.Transcribe(context.Background(), stt.Request{Path: path}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestNativeTranscribe_WrongSampleRate(t *testing.T) {
	p, err := whisper.NewNative(testModelPath(t))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	path := writeWAV(t, make([]byte, 4410*2), audio.Format{SampleRate: 44100, Channels: 1})
	_, err = p.Transcribe(context.Background(), stt.Request{Path: path})
	if !errors.Is(err, stt.ErrEngine) {
		t.Fatalf("error = %v, want ErrEngine", err)
	}
}
