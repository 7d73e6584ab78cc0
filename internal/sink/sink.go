// Package sink persists an annotated transcript next to its audio artifact.
package sink

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrWong99/hesitate/internal/artifact"
)

const (
	transcriptHeader = "Transcription:\n"
	markersHeader    = "\n\nDetected Hesitations:\n"
	markerSeparator  = ", "
)

// Record is one transcript ready to be written.
type Record struct {
	// Transcript is written verbatim.
	Transcript string

	// Markers are the detected hesitation markers in detection order. An
	// empty list omits the marker section entirely.
	Markers []string

	// AudioPath is the audio artifact the transcript belongs to; it decides
	// the transcript file name.
	AudioPath string
}

// Format renders r in the transcript file format.
func Format(r Record) string {
	var b strings.Builder
	b.WriteString(transcriptHeader)
	b.WriteString(r.Transcript)
	if len(r.Markers) > 0 {
		b.WriteString(markersHeader)
		b.WriteString(strings.Join(r.Markers, markerSeparator))
	}
	return b.String()
}

// Sink writes transcript files into an artifact layout.
type Sink struct {
	layout artifact.Layout
	out    io.Writer
}

// New returns a Sink writing into layout. The confirmation line is written
// to out; a nil out discards it.
func New(layout artifact.Layout, out io.Writer) *Sink {
	if out == nil {
		out = io.Discard
	}
	return &Sink{layout: layout, out: out}
}

// Persist writes r to the transcript path derived from r.AudioPath,
// replacing any existing file, and returns that path. The output directory
// must already exist; the recorder creates it before capture. Failures wrap
// [artifact.ErrFilesystem].
func (s *Sink) Persist(r Record) (string, error) {
	if r.AudioPath == "" {
		return "", fmt.Errorf("sink: %w: audio path must not be empty", artifact.ErrFilesystem)
	}
	path := s.layout.TranscriptPath(r.AudioPath)
	if err := os.WriteFile(path, []byte(Format(r)), 0o644); err != nil {
		return "", fmt.Errorf("sink: %w: write %q: %w", artifact.ErrFilesystem, path, err)
	}

	fmt.Fprintf(s.out, "Transcript saved at %s\n", path)
	return path, nil
}

// ReadTranscript parses a transcript file written by Persist and returns the
// transcript text and markers.
func ReadTranscript(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("sink: %w: read %q: %w", artifact.ErrFilesystem, path, err)
	}
	return Parse(string(data))
}

// Parse is the inverse of Format for transcripts that do not contain the
// marker header text themselves. The marker section is taken from the last
// occurrence of the header, so such a transcript still parses when markers
// follow, but one without markers is split at its own copy of the header.
// The file format has no escaping, so that case cannot be told apart.
func Parse(content string) (Record, error) {
	body, ok := strings.CutPrefix(content, transcriptHeader)
	if !ok {
		return Record{}, fmt.Errorf("sink: missing %q header", strings.TrimSpace(transcriptHeader))
	}
	i := strings.LastIndex(body, markersHeader)
	if i < 0 {
		return Record{Transcript: body}, nil
	}
	return Record{
		Transcript: body[:i],
		Markers:    strings.Split(body[i+len(markersHeader):], markerSeparator),
	}, nil
}
