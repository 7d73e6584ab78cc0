package stt

import "time"

// Transcript is the text produced for one audio artifact.
type Transcript struct {
	// Text is the transcribed speech content, exactly as the engine returned it.
	Text string

	// Language is the language the engine reports having used, if any.
	Language string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// engine does not report confidence.
	Confidence float64

	// Duration is the audio length the engine reports, if any.
	Duration time.Duration
}
