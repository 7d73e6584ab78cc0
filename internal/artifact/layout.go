// Package artifact owns the on-disk layout of pipeline outputs: the output
// directory, the timestamped audio file name, and the transcript path derived
// from it.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFilesystem classifies failures creating the output directory or writing
// an artifact. Callers test for it with [errors.Is].
var ErrFilesystem = errors.New("filesystem error")

const (
	// DefaultDir is the output directory used when none is configured.
	DefaultDir = "output_transcription"

	audioPrefix      = "recorded_audio_"
	audioExt         = ".wav"
	transcriptSuffix = "_transcript.txt"

	// timestampLayout renders capture start as YYYYMMDD_HHMMSS.
	timestampLayout = "20060102_150405"
)

// Layout resolves artifact paths under a single output directory.
// The zero value uses [DefaultDir].
type Layout struct {
	Dir string
}

// dir returns the configured directory or the default.
func (l Layout) dir() string {
	if l.Dir == "" {
		return DefaultDir
	}
	return l.Dir
}

// Ensure creates the output directory if it does not exist. It is idempotent.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.dir(), 0o755); err != nil {
		return fmt.Errorf("artifact: %w: create output dir %q: %w", ErrFilesystem, l.dir(), err)
	}
	return nil
}

// AudioName returns the audio artifact file name for a capture started at t.
// Names have second granularity; two captures started within the same second
// map to the same name.
func AudioName(t time.Time) string {
	return audioPrefix + t.Format(timestampLayout) + audioExt
}

// AudioPath returns the full audio artifact path for a capture started at t.
func (l Layout) AudioPath(t time.Time) string {
	return filepath.Join(l.dir(), AudioName(t))
}

// TranscriptPath returns the transcript path for the given audio artifact:
// the audio base name without extension plus a fixed suffix, inside the
// output directory.
func (l Layout) TranscriptPath(audioPath string) string {
	base := filepath.Base(audioPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(l.dir(), base+transcriptSuffix)
}
