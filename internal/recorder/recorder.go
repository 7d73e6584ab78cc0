// Package recorder captures audio from an [audio.Device] into a sealed
// in-memory buffer and serialises it as a WAV artifact.
//
// One call to [Recorder.Record] walks the capture state machine
// Idle → Capturing → Sealed:
//
//   - Idle → Capturing opens the device stream.
//   - Capturing → Capturing appends one chunk per iteration.
//   - Capturing → Sealed happens when the chunk quota is exhausted (bounded
//     capture) or when the interrupt channel fires (any capture).
//
// The device stream is released exactly once before Record returns, on every
// exit path. A read failure or context cancellation discards the buffer and
// writes nothing.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/hesitate/internal/artifact"
	"github.com/MrWong99/hesitate/pkg/audio"
)

// State is a capture state machine state.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateSealed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateSealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// Progress is reported after every captured chunk.
type Progress struct {
	SessionID string

	// ChunksRead is the number of chunks captured so far.
	ChunksRead int

	// ChunksTotal is the chunk quota, or 0 for unbounded capture.
	ChunksTotal int

	// Elapsed is the audio time captured so far (ChunksRead chunk periods).
	Elapsed time.Duration

	// Remaining is the chunk-granular time left; 0 for unbounded capture.
	Remaining time.Duration
}

// ProgressFunc receives capture progress. It runs on the capture goroutine
// and must return quickly.
type ProgressFunc func(Progress)

// Request parameterises a single Record call.
type Request struct {
	// Duration is the requested capture length. Zero means capture until
	// Interrupt fires. Negative values are rejected.
	Duration time.Duration

	// Interrupt, when it becomes readable (a send or close), ends capture
	// normally at the next chunk boundary. A nil channel never fires.
	Interrupt <-chan struct{}
}

// Artifact is the persisted result of one capture.
type Artifact struct {
	// Path is the WAV file location; Name is its base name.
	Path string
	Name string

	// Format is the header format written to the file.
	Format audio.Format

	// Chunks is the number of chunks captured.
	Chunks int

	// PayloadBytes is the size of the WAV data chunk.
	PayloadBytes int

	// Duration is the captured audio length (Chunks chunk periods).
	Duration time.Duration

	// Interrupted reports whether capture ended on the interrupt signal.
	Interrupted bool

	// Session is the session that produced the artifact.
	Session Session
}

// Config holds the fixed capture parameters.
type Config struct {
	// Stream is the device stream format and chunk size.
	Stream audio.StreamConfig

	// Layout decides where the artifact is written.
	Layout artifact.Layout
}

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithProgress registers fn to receive per-chunk progress.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Recorder) {
		r.progress = fn
	}
}

// WithClock overrides the time source used to stamp the capture start.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder captures audio sessions from a device. A Recorder may be reused
// for sequential Record calls but is not safe for concurrent ones.
type Recorder struct {
	device   audio.Device
	cfg      Config
	progress ProgressFunc
	now      func() time.Time
}

// New returns a Recorder reading from device. cfg.Stream must be valid.
func New(device audio.Device, cfg Config, opts ...Option) (*Recorder, error) {
	if device == nil {
		return nil, errors.New("recorder: device must not be nil")
	}
	if err := cfg.Stream.Validate(); err != nil {
		return nil, fmt.Errorf("recorder: invalid stream config: %w", err)
	}
	r := &Recorder{
		device: device,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Record runs one capture session and writes the WAV artifact.
//
// Errors wrap [audio.ErrDevice] for open/read failures and
// [artifact.ErrFilesystem] for directory or file failures. Cancelling ctx
// aborts capture, discards the audio, and returns the context error.
// Interrupt is the only way to end capture early without an error.
func (r *Recorder) Record(ctx context.Context, req Request) (*Artifact, error) {
	if req.Duration < 0 {
		return nil, fmt.Errorf("recorder: duration must not be negative, got %s", req.Duration)
	}

	if err := r.cfg.Layout.Ensure(); err != nil {
		return nil, err
	}

	sess := Session{
		ID:          uuid.NewString(),
		Format:      r.cfg.Stream.Format,
		ChunkFrames: r.cfg.Stream.ChunkFrames,
		Duration:    req.Duration,
		Started:     r.now(),
	}
	log := slog.With("session_id", sess.ID)

	c := &capture{sess: sess, log: log, state: StateIdle}
	if err := c.open(r.device, r.cfg.Stream); err != nil {
		return nil, err
	}
	defer c.release()

	interrupted, err := c.run(ctx, req.Interrupt, r.progress)
	if err != nil {
		return nil, err
	}

	pcm, err := c.buf.Bytes()
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}

	path := r.cfg.Layout.AudioPath(sess.Started)
	if err := writeArtifact(path, pcm, sess.Format); err != nil {
		return nil, err
	}

	art := &Artifact{
		Path:         path,
		Name:         artifact.AudioName(sess.Started),
		Format:       sess.Format,
		Chunks:       c.buf.Chunks(),
		PayloadBytes: len(pcm),
		Duration:     time.Duration(c.buf.Chunks()) * sess.ChunkPeriod(),
		Interrupted:  interrupted,
		Session:      sess,
	}
	log.Info("audio artifact written",
		"path", art.Path,
		"chunks", art.Chunks,
		"bytes", art.PayloadBytes,
		"interrupted", art.Interrupted,
	)
	return art, nil
}

// capture is the state of one in-flight Record call.
type capture struct {
	sess  Session
	log   *slog.Logger
	state State
	buf   Buffer

	stream    audio.Stream
	closeOnce sync.Once
}

func (c *capture) transition(to State) {
	c.log.Debug("capture state", "from", c.state.String(), "to", to.String())
	c.state = to
}

// open performs Idle → Capturing.
func (c *capture) open(dev audio.Device, cfg audio.StreamConfig) error {
	stream, err := dev.Open(cfg)
	if err != nil {
		if errors.Is(err, audio.ErrDevice) {
			return fmt.Errorf("recorder: open device: %w", err)
		}
		return fmt.Errorf("recorder: open device: %w: %w", audio.ErrDevice, err)
	}
	c.stream = stream
	c.transition(StateCapturing)
	return nil
}

// release closes the device stream. Only the first call has an effect.
func (c *capture) release() {
	c.closeOnce.Do(func() {
		if c.stream == nil {
			return
		}
		if err := c.stream.Close(); err != nil {
			c.log.Warn("closing audio stream failed", "err", err)
		}
	})
}

// seal performs Capturing → Sealed and releases the device.
func (c *capture) seal() {
	c.buf.Seal()
	c.release()
	c.transition(StateSealed)
}

// abort discards the buffer, releases the device and ends in Sealed.
func (c *capture) abort() {
	c.buf.discard()
	c.release()
	c.transition(StateSealed)
}

// run reads chunks until the quota is met or interrupt fires. The interrupt
// and ctx are polled once per chunk, so shutdown latency is bounded by one
// chunk period.
func (c *capture) run(ctx context.Context, interrupt <-chan struct{}, progress ProgressFunc) (interrupted bool, err error) {
	quota := c.sess.ChunkQuota()
	chunkBytes := c.sess.Format.FrameBytes(c.sess.ChunkFrames)

	c.log.Info("recording started",
		"format", c.sess.Format.String(),
		"chunk_frames", c.sess.ChunkFrames,
		"chunks", quota,
		"bounded", c.sess.Bounded(),
	)

	for quota == 0 || c.buf.Chunks() < quota {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.abort()
			return false, fmt.Errorf("recorder: capture cancelled: %w", ctxErr)
		}
		select {
		case <-interrupt:
			c.log.Info("recording interrupted", "chunks", c.buf.Chunks())
			c.seal()
			return true, nil
		default:
		}

		chunk, readErr := c.stream.Read(c.sess.ChunkFrames)
		if readErr == nil && len(chunk) != chunkBytes {
			readErr = fmt.Errorf("short chunk: got %d bytes, want %d", len(chunk), chunkBytes)
		}
		if readErr != nil {
			read := c.buf.Chunks()
			c.abort()
			if errors.Is(readErr, audio.ErrDevice) {
				return false, fmt.Errorf("recorder: read chunk %d: %w", read+1, readErr)
			}
			return false, fmt.Errorf("recorder: read chunk %d: %w: %w", read+1, audio.ErrDevice, readErr)
		}
		if err := c.buf.Append(chunk); err != nil {
			c.abort()
			return false, err
		}

		if progress != nil {
			n := c.buf.Chunks()
			progress(Progress{
				SessionID:   c.sess.ID,
				ChunksRead:  n,
				ChunksTotal: quota,
				Elapsed:     time.Duration(n) * c.sess.ChunkPeriod(),
				Remaining:   c.sess.Remaining(n),
			})
		}
	}

	c.seal()
	return false, nil
}

// writeArtifact writes pcm as a WAV file at path. A partially written file is
// removed so no truncated artifact is left behind.
func writeArtifact(path string, pcm []byte, f audio.Format) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: %w: create %q: %w", artifact.ErrFilesystem, path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("recorder: %w: close %q: %w", artifact.ErrFilesystem, path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := audio.EncodeWAV(out, pcm, f); err != nil {
		return fmt.Errorf("recorder: %w: write %q: %w", artifact.ErrFilesystem, path, err)
	}
	return nil
}
