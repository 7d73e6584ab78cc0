// Package mock provides in-memory implementations of [audio.Device] and
// [audio.Stream] for use in unit tests.
//
// The mocks record every call so tests can assert on open/read/close counts,
// and expose exported fields that control return values. Reads are served
// synchronously; there is no real-time pacing.
//
// Typical usage:
//
//	dev := &mock.Device{}
//	dev.Stream.FailAfter = 3
//	stream, err := dev.Open(cfg)
package mock

import (
	"errors"
	"sync"

	"github.com/MrWong99/hesitate/pkg/audio"
)

// ErrInjected is the default read error returned once Stream.FailAfter reads
// have been served.
var ErrInjected = errors.New("mock: injected read failure")

// Device is a mock implementation of [audio.Device]. It always hands out
// &d.Stream, so the stream's counters remain inspectable after use.
type Device struct {
	mu sync.Mutex

	// OpenErr, if non-nil, is returned by Open and no stream is handed out.
	OpenErr error

	// Stream is the stream returned by Open.
	Stream Stream

	// OpenCalls records every StreamConfig passed to Open.
	OpenCalls []audio.StreamConfig
}

// Open records the call and returns &d.Stream or OpenErr.
func (d *Device) Open(cfg audio.StreamConfig) (audio.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenCalls = append(d.OpenCalls, cfg)
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.Stream.setFormat(cfg.Format)
	return &d.Stream, nil
}

// OpenCallCount returns the number of Open calls. Thread-safe.
func (d *Device) OpenCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.OpenCalls)
}

// Stream is a mock implementation of [audio.Stream]. Each Read returns a chunk
// whose samples encode the read index, so tests can verify ordering.
type Stream struct {
	mu     sync.Mutex
	format audio.Format

	// FailAfter, if positive, makes the read after FailAfter successful reads
	// return ReadErr (or ErrInjected if ReadErr is nil).
	FailAfter int

	// ReadErr is the error returned once FailAfter is reached.
	ReadErr error

	// OnRead, if non-nil, is invoked after every successful read with the
	// number of reads served so far. Tests use it to trigger interruption.
	OnRead func(reads int)

	// CloseErr is returned by the first Close call.
	CloseErr error

	// ReadCalls counts successful reads.
	ReadCalls int

	// CloseCalls counts Close invocations.
	CloseCalls int
}

func (s *Stream) setFormat(f audio.Format) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = f
}

// Read returns frames frames of synthetic PCM. Every sample of chunk i holds
// the value i+1 so chunks are distinguishable once concatenated.
func (s *Stream) Read(frames int) ([]byte, error) {
	s.mu.Lock()
	if s.CloseCalls > 0 {
		s.mu.Unlock()
		return nil, errors.New("mock: read on closed stream")
	}
	if s.FailAfter > 0 && s.ReadCalls >= s.FailAfter {
		err := s.ReadErr
		if err == nil {
			err = ErrInjected
		}
		s.mu.Unlock()
		return nil, err
	}
	s.ReadCalls++
	reads := s.ReadCalls
	channels := s.format.Channels
	if channels <= 0 {
		channels = 1
	}
	onRead := s.OnRead
	s.mu.Unlock()

	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(reads)
	}
	if onRead != nil {
		onRead(reads)
	}
	return audio.Int16ToBytes(samples), nil
}

// Close records the call. Only the first call returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	if s.CloseCalls == 1 {
		return s.CloseErr
	}
	return nil
}

// Reads returns the number of successful reads. Thread-safe.
func (s *Stream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ReadCalls
}

// Closes returns the number of Close calls. Thread-safe.
func (s *Stream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCalls
}

// Ensure the mocks satisfy the audio interfaces at compile time.
var (
	_ audio.Device = (*Device)(nil)
	_ audio.Stream = (*Stream)(nil)
)
