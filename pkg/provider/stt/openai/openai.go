// Package openai provides an STT provider backed by the OpenAI audio
// transcription API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = string(oai.AudioModelWhisper1)

// Ensure Provider implements the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	language     string
	timeout      time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Any server speaking
// the /audio/transcriptions protocol works.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithLanguage sets the ISO-639-1 language hint sent with each request.
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI transcription Provider.
// If model is empty, DefaultModel (whisper-1) is used. The client never
// retries; a failed request surfaces immediately.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, language: cfg.language}, nil
}

// ModelID returns the model used for transcription.
func (p *Provider) ModelID() string { return p.model }

// Transcribe implements stt.Provider. The WAV file is uploaded unchanged.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: %w: open audio: %w", stt.ErrEngine, err)
	}
	defer f.Close()

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	params := oai.AudioTranscriptionNewParams{
		File:  f,
		Model: oai.AudioModel(p.model),
	}
	if lang != "" {
		params.Language = oai.String(lang)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: %w: transcribe: %w", stt.ErrEngine, err)
	}
	return stt.Transcript{Text: resp.Text, Language: lang}, nil
}
