// Package whisper provides whisper.cpp-backed STT providers.
//
// [Provider] talks to a running whisper-server binary, which exposes a REST
// API at POST /inference. The WAV artifact is uploaded unchanged as
// multipart/form-data and the server's JSON text field is returned.
//
// [NativeProvider] links whisper.cpp through its cgo bindings and runs
// inference in-process on the decoded PCM samples.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithModel("base"),
//	    whisper.WithLanguage("en"),
//	)
//	t, err := p.Transcribe(ctx, stt.Request{Path: "recorded_audio.wav"})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

const (
	// DefaultModel is the whisper model variant used when none is configured.
	DefaultModel = "base"

	defaultTimeout = 5 * time.Minute
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base", "small"). The server may ignore it and use whichever model
// it was started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code sent to the whisper.cpp server
// (e.g., "en", "es"). Empty (the default) lets the server decide.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the HTTP client timeout for a single inference request.
// Transcribing a long recording on CPU can take minutes. Defaults to 5 min.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient = &http.Client{Timeout: d}
	}
}

// Provider implements stt.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// inferenceResponse is the JSON body returned by whisper-server.
type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Transcribe uploads the WAV file at req.Path to the /inference endpoint and
// returns the transcribed text. All failures wrap [stt.ErrEngine].
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	wav, err := os.ReadFile(req.Path)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: read audio: %w", stt.ErrEngine, err)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	body, contentType, err := p.buildForm(filepath.Base(req.Path), wav, lang)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: %w", stt.ErrEngine, err)
	}

	endpoint := p.serverURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: create request: %w", stt.ErrEngine, err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: http request: %w", stt.ErrEngine, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: read response body: %w", stt.ErrEngine, err)
	}
	if resp.StatusCode != http.StatusOK {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: server returned HTTP %d: %s",
			stt.ErrEngine, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result inferenceResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: parse JSON response: %w", stt.ErrEngine, err)
	}
	if result.Error != "" {
		return stt.Transcript{}, fmt.Errorf("whisper: %w: server error: %s", stt.ErrEngine, result.Error)
	}

	return stt.Transcript{Text: result.Text, Language: lang}, nil
}

// buildForm encodes the multipart body for the /inference endpoint.
func (p *Provider) buildForm(name string, wav []byte, lang string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}

	fields := [][2]string{
		{"response_format", "json"},
		{"language", lang},
		{"model", p.model},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", f[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}
