package whisper_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
	"github.com/MrWong99/hesitate/pkg/provider/stt/whisper"
)

// ---- helpers ----------------------------------------------------------------

// inferenceCall captures what the mock server received.
type inferenceCall struct {
	file     []byte
	filename string
	fields   map[string]string
}

// newMockServer creates a test server that answers POST /inference with the
// given status and JSON body and records each received form.
func newMockServer(t *testing.T, status int, body any) (*httptest.Server, *[]inferenceCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []inferenceCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		call := inferenceCall{fields: map[string]string{}}
		for k, v := range r.MultipartForm.Value {
			call.fields[k] = v[0]
		}
		if f, hdr, err := r.FormFile("file"); err == nil {
			call.file, _ = io.ReadAll(f)
			call.filename = hdr.Filename
			f.Close()
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// writeWAV writes pcm as a WAV artifact in a temp dir and returns its path.
func writeWAV(t *testing.T, pcm []byte, f audio.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recorded_audio_20240501_102030.wav")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer out.Close()
	if err := audio.EncodeWAV(out, pcm, f); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return path
}

var monoFormat = audio.Format{SampleRate: 16000, Channels: 1}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := whisper.New("http://localhost:8080/",
		whisper.WithModel("small"),
		whisper.WithLanguage("de"),
		whisper.WithTimeout(time.Second),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

// ---- transcription ----------------------------------------------------------

func TestTranscribe_UploadsArtifactUnchanged(t *testing.T) {
	srv, calls := newMockServer(t, http.StatusOK, map[string]string{"text": " um, so I think"})
	p, _ := whisper.New(srv.URL, whisper.WithModel("base"), whisper.WithLanguage("en"))

	path := writeWAV(t, bytes.Repeat([]byte{1, 0}, 2048), monoFormat)
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	got, err := p.Transcribe(context.Background(), stt.Request{Path: path, Format: monoFormat})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != " um, so I think" {
		t.Errorf("Text = %q, want %q", got.Text, " um, so I think")
	}
	if got.Language != "en" {
		t.Errorf("Language = %q, want en", got.Language)
	}

	if len(*calls) != 1 {
		t.Fatalf("server calls = %d, want 1", len(*calls))
	}
	call := (*calls)[0]
	if !bytes.Equal(call.file, want) {
		t.Errorf("uploaded %d bytes differ from the %d-byte artifact", len(call.file), len(want))
	}
	if call.filename != filepath.Base(path) {
		t.Errorf("filename = %q, want %q", call.filename, filepath.Base(path))
	}
	if call.fields["model"] != "base" || call.fields["language"] != "en" {
		t.Errorf("fields = %v, want model=base language=en", call.fields)
	}
}

func TestTranscribe_RequestLanguageOverridesDefault(t *testing.T) {
	srv, calls := newMockServer(t, http.StatusOK, map[string]string{"text": "bueno"})
	p, _ := whisper.New(srv.URL, whisper.WithLanguage("en"))

	path := writeWAV(t, make([]byte, 64), monoFormat)
	if _, err := p.Transcribe(context.Background(), stt.Request{Path: path, Language: "es"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got := (*calls)[0].fields["language"]; got != "es" {
		t.Errorf("language field = %q, want es", got)
	}
}

func TestTranscribe_OmitsEmptyLanguage(t *testing.T) {
	srv, calls := newMockServer(t, http.StatusOK, map[string]string{"text": ""})
	p, _ := whisper.New(srv.URL)

	path := writeWAV(t, make([]byte, 64), monoFormat)
	got, err := p.Transcribe(context.Background(), stt.Request{Path: path})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
	if _, ok := (*calls)[0].fields["language"]; ok {
		t.Error("language field sent although no language was configured")
	}
}

// ---- failures ---------------------------------------------------------------

func TestTranscribe_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"http status", http.StatusInternalServerError, map[string]string{"error": "boom"}},
		{"error field", http.StatusOK, map[string]string{"error": "failed to load audio"}},
		{"malformed json", http.StatusOK, "not an object"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newMockServer(t, tc.status, tc.body)
			p, _ := whisper.New(srv.URL)
			path := writeWAV(t, make([]byte, 64), monoFormat)

			_, err := p.Transcribe(context.Background(), stt.Request{Path: path})
			if !errors.Is(err, stt.ErrEngine) {
				t.Fatalf("error = %v, want ErrEngine", err)
			}
		})
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	srv, calls := newMockServer(t, http.StatusOK, map[string]string{"text": "x"})
	p, _ := whisper.New(srv.URL)

	_, err := p.Transcribe(context.Background(), stt.Request{Path: filepath.Join(t.TempDir(), "missing.wav")})
	if !errors.Is(err, stt.ErrEngine) {
		t.Fatalf("error = %v, want ErrEngine", err)
	}
	if len(*calls) != 0 {
		t.Errorf("server calls = %d, want 0", len(*calls))
	}
}

func TestTranscribe_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, _ := whisper.New(url)
	path := writeWAV(t, make([]byte, 64), monoFormat)
	_, err := p.Transcribe(context.Background(), stt.Request{Path: path})
	if !errors.Is(err, stt.ErrEngine) {
		t.Fatalf("error = %v, want ErrEngine", err)
	}
}

func TestTranscribe_CancelledContext(t *testing.T) {
	srv, _ := newMockServer(t, http.StatusOK, map[string]string{"text": "x"})
	p, _ := whisper.New(srv.URL)
	path := writeWAV(t, make([]byte, 64), monoFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Transcribe(ctx, stt.Request{Path: path})
	if !errors.Is(err, stt.ErrEngine) || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want ErrEngine wrapping context.Canceled", err)
	}
}
