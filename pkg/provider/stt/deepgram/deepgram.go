// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// live WebSocket API. It implements the stt.Provider interface.
//
// A Transcribe call opens one WebSocket, streams the WAV artifact in binary
// frames, sends CloseStream, and joins every final transcript Deepgram emits
// before it closes the connection.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"

	// DefaultModel is the Deepgram model used when none is configured.
	DefaultModel = "nova-3"

	defaultLanguage = "en"

	// frameBytes is the size of each binary WebSocket frame.
	frameBytes = 8192
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "es").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the WebSocket endpoint. Tests point it at a local
// server.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram live API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    DefaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams the WAV file at req.Path to Deepgram and returns the
// joined final transcript. All failures wrap [stt.ErrEngine].
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w: read audio: %w", stt.ErrEngine, err)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	wsURL, err := p.buildURL(lang)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w: build URL: %w", stt.ErrEngine, err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w: dial: %w", stt.ErrEngine, err)
	}
	defer conn.CloseNow()

	var (
		parts []string
		conf  float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeAudio(gctx, conn, data)
	})
	g.Go(func() error {
		var err error
		parts, conf, err = readResults(gctx, conn)
		return err
	})
	if err := g.Wait(); err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w: %w", stt.ErrEngine, err)
	}

	conn.Close(websocket.StatusNormalClosure, "transcription complete")

	t := stt.Transcript{Text: strings.Join(parts, " "), Language: lang}
	if len(parts) > 0 {
		t.Confidence = conf / float64(len(parts))
	}
	return t, nil
}

// buildURL constructs the Deepgram streaming endpoint URL. The artifact is a
// WAV container, so encoding and sample_rate are left to Deepgram's header
// detection. filler_words keeps "um" and "uh" in the transcript; Deepgram
// drops them by default.
func (p *Provider) buildURL(lang string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("filler_words", "true")

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// writeAudio sends data in binary frames followed by CloseStream.
func writeAudio(ctx context.Context, conn *websocket.Conn, data []byte) error {
	r := bytes.NewReader(data)
	buf := make([]byte, frameBytes)
	for {
		n, _ := r.Read(buf)
		if n == 0 {
			break
		}
		if err := conn.Write(ctx, websocket.MessageBinary, buf[:n]); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("send CloseStream: %w", err)
	}
	return nil
}

// readResults collects final transcripts until Deepgram closes the socket.
// It returns the non-empty transcripts and the sum of their confidences.
func readResults(ctx context.Context, conn *websocket.Conn) ([]string, float64, error) {
	var (
		parts []string
		conf  float64
	)
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return parts, conf, nil
			}
			return nil, 0, fmt.Errorf("read results: %w", err)
		}

		if e, ok := parseDeepgramError(msg); ok {
			return nil, 0, fmt.Errorf("server error: %s", e)
		}
		r, ok := parseDeepgramResponse(msg)
		if !ok || !r.isFinal {
			continue
		}
		if text := strings.TrimSpace(r.text); text != "" {
			parts = append(parts, text)
			conf += r.confidence
		}
	}
}

// ---- wire format ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// deepgramError is the JSON structure of a Deepgram Error event.
type deepgramError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// result is one parsed Results event.
type result struct {
	text       string
	isFinal    bool
	confidence float64
}

// parseDeepgramResponse parses a raw Deepgram WebSocket message.
// Returns (result, true) on success, or (zero, false) if the message should be ignored.
func parseDeepgramResponse(data []byte) (result, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return result{}, false
	}
	if resp.Type != "Results" {
		return result{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return result{}, false
	}

	alt := resp.Channel.Alternatives[0]
	return result{
		text:       alt.Transcript,
		isFinal:    resp.IsFinal,
		confidence: alt.Confidence,
	}, true
}

// parseDeepgramError reports whether data is an Error event and returns its
// description.
func parseDeepgramError(data []byte) (string, bool) {
	var e deepgramError
	if err := json.Unmarshal(data, &e); err != nil || e.Type != "Error" {
		return "", false
	}
	if e.Description != "" {
		return e.Description, true
	}
	return e.Message, true
}
