// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that the caller hands over the expected artifact and
// to control the returned transcript or error.
//
// Example:
//
//	p := &mock.Provider{Transcript: stt.Transcript{Text: "um, so"}}
//	t, _ := p.Transcribe(ctx, stt.Request{Path: "a.wav"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the request passed to Transcribe.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider that also implements
// io.Closer.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by Transcribe when Err is nil.
	Transcript stt.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// CloseErr is returned by Close.
	CloseErr error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall

	// CloseCalls counts Close invocations.
	CloseCalls int
}

// Transcribe records the call and returns Transcript, Err.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return stt.Transcript{}, p.Err
	}
	return p.Transcript, nil
}

// Close records the call and returns CloseErr.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return p.CloseErr
}

// Calls returns the number of Transcribe invocations. Thread-safe.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}

// Closes returns the number of Close invocations. Thread-safe.
func (p *Provider) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CloseCalls
}

// Ensure Provider satisfies stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
