package recorder

import (
	"time"

	"github.com/MrWong99/hesitate/pkg/audio"
)

// Session is the immutable description of one recording invocation.
// It is created when Record starts and discarded once the artifact is written.
type Session struct {
	// ID uniquely identifies the session in logs and traces.
	ID string

	// Format is the capture format (16-bit PCM at the given rate/channels).
	Format audio.Format

	// ChunkFrames is the number of frames read from the device per chunk.
	ChunkFrames int

	// Duration is the requested capture length. Zero means unbounded: capture
	// runs until interrupted.
	Duration time.Duration

	// Started is the capture start time; it names the artifact.
	Started time.Time
}

// Bounded reports whether the session has a requested duration.
func (s Session) Bounded() bool { return s.Duration > 0 }

// ChunkPeriod returns the audio time represented by one chunk.
func (s Session) ChunkPeriod() time.Duration {
	return chunkPeriod(s.ChunkFrames, s.Format.SampleRate)
}

// ChunkQuota returns the number of chunks a bounded session captures:
// ceil(Duration * SampleRate / ChunkFrames). It returns 0 for unbounded
// sessions.
func (s Session) ChunkQuota() int {
	if !s.Bounded() {
		return 0
	}
	return chunkQuota(s.Duration, s.Format.SampleRate, s.ChunkFrames)
}

// Remaining returns the requested duration minus the audio already captured,
// clamped at zero. It advances in whole chunks, so it drifts from wall-clock
// time by up to one chunk period; this is an accepted approximation. Returns
// 0 for unbounded sessions.
func (s Session) Remaining(chunksRead int) time.Duration {
	if !s.Bounded() {
		return 0
	}
	left := s.Duration - time.Duration(chunksRead)*s.ChunkPeriod()
	if left < 0 {
		return 0
	}
	return left
}

// chunkPeriod returns chunkFrames/sampleRate as a duration.
func chunkPeriod(chunkFrames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(chunkFrames) * int64(time.Second) / int64(sampleRate))
}

// chunkQuota computes ceil(d * sampleRate / chunkFrames) in integer arithmetic.
// The frame count is split into whole seconds and a sub-second remainder so
// the intermediate products stay well inside int64 for any realistic d.
func chunkQuota(d time.Duration, sampleRate, chunkFrames int) int {
	if d <= 0 || sampleRate <= 0 || chunkFrames <= 0 {
		return 0
	}
	rate := int64(sampleRate)
	whole := int64(d/time.Second) * rate
	frac := int64(d%time.Second) * rate
	frames := whole + (frac+int64(time.Second)-1)/int64(time.Second)
	chunk := int64(chunkFrames)
	return int((frames + chunk - 1) / chunk)
}
