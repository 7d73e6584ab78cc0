package recorder_test

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/hesitate/internal/artifact"
	"github.com/MrWong99/hesitate/internal/recorder"
	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/audio/mock"
)

// ---- helpers ----------------------------------------------------------------

var (
	testStream = audio.StreamConfig{
		Format:      audio.Format{SampleRate: 16000, Channels: 1},
		ChunkFrames: 1024,
	}
	testStart = time.Date(2024, time.May, 1, 10, 20, 30, 0, time.UTC)
)

func newRecorder(t *testing.T, dev *mock.Device, opts ...recorder.Option) (*recorder.Recorder, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	opts = append([]recorder.Option{recorder.WithClock(func() time.Time { return testStart })}, opts...)
	r, err := recorder.New(dev, recorder.Config{
		Stream: testStream,
		Layout: artifact.Layout{Dir: dir},
	}, opts...)
	if err != nil {
		t.Fatalf("recorder.New: %v", err)
	}
	return r, dir
}

func decode(t *testing.T, path string) (audio.Format, []byte) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	format, pcm, err := audio.DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	return format, pcm
}

func assertNoArtifacts(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no artifacts, found %d", len(entries))
	}
}

// ---- construction -----------------------------------------------------------

func TestNew_NilDevice_ReturnsError(t *testing.T) {
	if _, err := recorder.New(nil, recorder.Config{Stream: testStream}); err == nil {
		t.Fatal("expected error for nil device, got nil")
	}
}

func TestNew_InvalidStream_ReturnsError(t *testing.T) {
	if _, err := recorder.New(&mock.Device{}, recorder.Config{}); err == nil {
		t.Fatal("expected error for zero stream config, got nil")
	}
}

// ---- bounded capture --------------------------------------------------------

func TestRecord_BoundedChunkCountAndPayload(t *testing.T) {
	tests := []struct {
		duration time.Duration
		chunks   int
	}{
		{64 * time.Millisecond, 1},
		{time.Second, 16},
		{2500 * time.Millisecond, 40}, // 39.0625 → 40
	}
	for _, tc := range tests {
		t.Run(tc.duration.String(), func(t *testing.T) {
			dev := &mock.Device{}
			r, dir := newRecorder(t, dev)

			art, err := r.Record(context.Background(), recorder.Request{Duration: tc.duration})
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			if art.Chunks != tc.chunks {
				t.Errorf("Chunks = %d, want %d", art.Chunks, tc.chunks)
			}
			if want := tc.chunks * 1024 * 2; art.PayloadBytes != want {
				t.Errorf("PayloadBytes = %d, want %d", art.PayloadBytes, want)
			}
			if art.Interrupted {
				t.Error("Interrupted = true for a capture that ran to quota")
			}
			if got := dev.Stream.Reads(); got != tc.chunks {
				t.Errorf("device reads = %d, want %d", got, tc.chunks)
			}
			if got := dev.Stream.Closes(); got != 1 {
				t.Errorf("stream closed %d times, want 1", got)
			}

			wantPath := filepath.Join(dir, "recorded_audio_20240501_102030.wav")
			if art.Path != wantPath {
				t.Errorf("Path = %q, want %q", art.Path, wantPath)
			}
			format, pcm := decode(t, art.Path)
			if format != testStream.Format {
				t.Errorf("header format = %v, want %v", format, testStream.Format)
			}
			if len(pcm) != art.PayloadBytes {
				t.Errorf("decoded payload = %d bytes, want %d", len(pcm), art.PayloadBytes)
			}
		})
	}
}

func TestRecord_ProgressIsChunkGranular(t *testing.T) {
	dev := &mock.Device{}
	var got []recorder.Progress
	r, _ := newRecorder(t, dev, recorder.WithProgress(func(p recorder.Progress) {
		got = append(got, p)
	}))

	if _, err := r.Record(context.Background(), recorder.Request{Duration: time.Second}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("progress callbacks = %d, want 16", len(got))
	}
	if got[0].Remaining != 936*time.Millisecond || got[0].ChunksRead != 1 || got[0].ChunksTotal != 16 {
		t.Errorf("first progress = %+v", got[0])
	}
	if last := got[len(got)-1]; last.Remaining != 0 || last.Elapsed != 1024*time.Millisecond {
		t.Errorf("last progress = %+v, want Remaining 0 and Elapsed 1.024s", last)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Remaining > got[i-1].Remaining {
			t.Fatalf("remaining increased at chunk %d: %s > %s", i+1, got[i].Remaining, got[i-1].Remaining)
		}
	}
}

// ---- interruption -----------------------------------------------------------

func TestRecord_UnboundedInterruptedAfterNChunks(t *testing.T) {
	const n = 7
	interrupt := make(chan struct{})
	dev := &mock.Device{}
	dev.Stream.OnRead = func(reads int) {
		if reads == n {
			close(interrupt)
		}
	}
	r, _ := newRecorder(t, dev)

	art, err := r.Record(context.Background(), recorder.Request{Interrupt: interrupt})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !art.Interrupted {
		t.Error("Interrupted = false, want true")
	}
	if art.Chunks != n {
		t.Fatalf("Chunks = %d, want %d", art.Chunks, n)
	}
	if got := dev.Stream.Closes(); got != 1 {
		t.Errorf("stream closed %d times, want 1", got)
	}

	_, pcm := decode(t, art.Path)
	if len(pcm) != n*1024*2 {
		t.Fatalf("payload = %d bytes, want %d", len(pcm), n*1024*2)
	}
	// The mock stamps every sample of chunk i with i; the final chunk must be
	// intact.
	lastChunk := pcm[(n-1)*2048:]
	for i := 0; i < len(lastChunk); i += 2 {
		if v := int16(binary.LittleEndian.Uint16(lastChunk[i:])); v != n {
			t.Fatalf("last chunk sample %d = %d, want %d", i/2, v, n)
		}
	}
}

func TestRecord_InterruptBeforeFirstChunk(t *testing.T) {
	interrupt := make(chan struct{})
	close(interrupt)
	dev := &mock.Device{}
	r, _ := newRecorder(t, dev)

	art, err := r.Record(context.Background(), recorder.Request{Interrupt: interrupt})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if art.Chunks != 0 || art.PayloadBytes != 0 {
		t.Errorf("Chunks/PayloadBytes = %d/%d, want 0/0", art.Chunks, art.PayloadBytes)
	}
	if got := dev.Stream.Reads(); got != 0 {
		t.Errorf("device reads = %d, want 0", got)
	}
	if got := dev.Stream.Closes(); got != 1 {
		t.Errorf("stream closed %d times, want 1", got)
	}
}

func TestRecord_BoundedInterruptKeepsCapturedAudio(t *testing.T) {
	interrupt := make(chan struct{})
	dev := &mock.Device{}
	dev.Stream.OnRead = func(reads int) {
		if reads == 3 {
			close(interrupt)
		}
	}
	r, _ := newRecorder(t, dev)

	art, err := r.Record(context.Background(), recorder.Request{Duration: 10 * time.Second, Interrupt: interrupt})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if art.Chunks != 3 || !art.Interrupted {
		t.Errorf("Chunks = %d, Interrupted = %v; want 3, true", art.Chunks, art.Interrupted)
	}
}

// ---- failure paths ----------------------------------------------------------

func TestRecord_OpenFailureIsDeviceError(t *testing.T) {
	dev := &mock.Device{OpenErr: errors.New("no microphone")}
	r, dir := newRecorder(t, dev)

	_, err := r.Record(context.Background(), recorder.Request{Duration: time.Second})
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("error = %v, want ErrDevice", err)
	}
	if got := dev.Stream.Reads(); got != 0 {
		t.Errorf("device reads = %d, want 0", got)
	}
	assertNoArtifacts(t, dir)
}

func TestRecord_ReadFailureDiscardsAudio(t *testing.T) {
	dev := &mock.Device{}
	dev.Stream.FailAfter = 4
	r, dir := newRecorder(t, dev)

	_, err := r.Record(context.Background(), recorder.Request{Duration: 10 * time.Second})
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("error = %v, want ErrDevice", err)
	}
	if !errors.Is(err, mock.ErrInjected) {
		t.Errorf("error = %v, want it to wrap the read failure", err)
	}
	if got := dev.Stream.Closes(); got != 1 {
		t.Errorf("stream closed %d times, want 1", got)
	}
	assertNoArtifacts(t, dir)
}

func TestRecord_ContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev := &mock.Device{}
	dev.Stream.OnRead = func(reads int) {
		if reads == 2 {
			cancel()
		}
	}
	r, dir := newRecorder(t, dev)

	_, err := r.Record(ctx, recorder.Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if got := dev.Stream.Closes(); got != 1 {
		t.Errorf("stream closed %d times, want 1", got)
	}
	assertNoArtifacts(t, dir)
}

func TestRecord_NegativeDurationRejected(t *testing.T) {
	dev := &mock.Device{}
	r, _ := newRecorder(t, dev)

	if _, err := r.Record(context.Background(), recorder.Request{Duration: -time.Second}); err == nil {
		t.Fatal("expected error for negative duration, got nil")
	}
	if got := dev.OpenCallCount(); got != 0 {
		t.Errorf("device opened %d times, want 0", got)
	}
}

func TestRecord_OutputDirFailureIsFilesystemError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dev := &mock.Device{}
	r, err := recorder.New(dev, recorder.Config{
		Stream: testStream,
		Layout: artifact.Layout{Dir: filepath.Join(blocker, "out")},
	})
	if err != nil {
		t.Fatalf("recorder.New: %v", err)
	}

	_, err = r.Record(context.Background(), recorder.Request{Duration: time.Second})
	if !errors.Is(err, artifact.ErrFilesystem) {
		t.Fatalf("error = %v, want ErrFilesystem", err)
	}
	if got := dev.OpenCallCount(); got != 0 {
		t.Errorf("device opened %d times, want 0", got)
	}
}

func TestRecord_PassesStreamConfigToDevice(t *testing.T) {
	dev := &mock.Device{}
	r, _ := newRecorder(t, dev)
	if _, err := r.Record(context.Background(), recorder.Request{Duration: 64 * time.Millisecond}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(dev.OpenCalls) != 1 || dev.OpenCalls[0] != testStream {
		t.Errorf("OpenCalls = %+v, want [%+v]", dev.OpenCalls, testStream)
	}
}
