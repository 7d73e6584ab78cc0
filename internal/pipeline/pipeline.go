// Package pipeline runs one capture → transcribe → detect → persist pass.
//
// Stages execute strictly in order on the caller's goroutine and no stage
// starts before the previous one returns. The first failing stage ends the
// run; its error is returned unchanged so callers can classify it with
// errors.Is against [audio.ErrDevice], [stt.ErrEngine] or
// [artifact.ErrFilesystem].
//
// Each run is traced as a pipeline.run span with one child span per stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/hesitate/internal/hesitation"
	"github.com/MrWong99/hesitate/internal/observe"
	"github.com/MrWong99/hesitate/internal/recorder"
	"github.com/MrWong99/hesitate/internal/sink"
	"github.com/MrWong99/hesitate/internal/transcription"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// previewRunes is the transcript prefix length shown after detection.
const previewRunes = 100

// Recorder captures one audio artifact.
type Recorder interface {
	Record(ctx context.Context, req recorder.Request) (*recorder.Artifact, error)
}

// Transcriber turns an artifact into text.
type Transcriber interface {
	Transcribe(ctx context.Context, art *recorder.Artifact) (stt.Transcript, error)
}

// Detector reports the hesitation markers present in a transcript.
type Detector interface {
	Detect(text string) hesitation.Result
}

// Sink persists the transcript record and returns its path.
type Sink interface {
	Persist(r sink.Record) (string, error)
}

// Compile-time interface assertions.
var (
	_ Recorder    = (*recorder.Recorder)(nil)
	_ Transcriber = (*transcription.Adapter)(nil)
	_ Detector    = (*hesitation.Detector)(nil)
	_ Sink        = (*sink.Sink)(nil)
)

// Stages bundles the four stage implementations.
type Stages struct {
	Recorder    Recorder
	Transcriber Transcriber
	Detector    Detector
	Sink        Sink
}

// Request parameterises one run. It is forwarded to the recorder.
type Request = recorder.Request

// Report is the outcome of a successful run.
type Report struct {
	Artifact       *recorder.Artifact
	Transcript     stt.Transcript
	Markers        hesitation.Result
	TranscriptPath string
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithOutput sets where the transcript preview is printed. Default: discard.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// WithEngineName labels STT latency samples. Default: "unknown".
func WithEngineName(name string) Option {
	return func(p *Pipeline) {
		p.engine = name
	}
}

// Pipeline wires the stages together.
type Pipeline struct {
	stages  Stages
	metrics *observe.Metrics
	out     io.Writer
	engine  string
}

// New validates stages and returns a ready Pipeline.
func New(stages Stages, opts ...Option) (*Pipeline, error) {
	var errs []error
	if stages.Recorder == nil {
		errs = append(errs, errors.New("recorder stage is nil"))
	}
	if stages.Transcriber == nil {
		errs = append(errs, errors.New("transcriber stage is nil"))
	}
	if stages.Detector == nil {
		errs = append(errs, errors.New("detector stage is nil"))
	}
	if stages.Sink == nil {
		errs = append(errs, errors.New("sink stage is nil"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Pipeline{
		stages: stages,
		out:    io.Discard,
		engine: "unknown",
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.out == nil {
		p.out = io.Discard
	}
	return p, nil
}

// Run executes all four stages once.
func (p *Pipeline) Run(ctx context.Context, req Request) (_ *Report, err error) {
	ctx, root := observe.StartSpan(ctx, "pipeline.run")
	rep := &Report{}
	defer func() {
		status := observe.StatusOK
		if rep.Artifact != nil && rep.Artifact.Interrupted {
			status = observe.StatusInterrupted
		}
		if err != nil {
			status = observe.StatusError
			root.RecordError(err)
			root.SetStatus(codes.Error, err.Error())
		}
		p.metrics.RecordRun(ctx, status)
		root.End()
	}()

	// 1. Capture.
	err = p.stage(ctx, observe.StageRecord, func(ctx context.Context, span trace.Span) error {
		art, err := p.stages.Recorder.Record(ctx, req)
		if err != nil {
			return err
		}
		rep.Artifact = art
		span.SetAttributes(
			attribute.String("artifact.path", art.Path),
			attribute.Int("artifact.chunks", art.Chunks),
			attribute.Bool("artifact.interrupted", art.Interrupted),
		)
		p.metrics.RecordCapture(ctx, art.Chunks, art.Duration.Seconds())
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = observe.WithSession(ctx, rep.Artifact.Session.ID)
	log := observe.Logger(ctx)

	// 2. Transcribe.
	err = p.stage(ctx, observe.StageTranscribe, func(ctx context.Context, span trace.Span) error {
		start := time.Now()
		t, err := p.stages.Transcriber.Transcribe(ctx, rep.Artifact)
		if err != nil {
			return err
		}
		p.metrics.RecordSTT(ctx, p.engine, time.Since(start).Seconds())
		rep.Transcript = t
		span.SetAttributes(attribute.Int("transcript.runes", len([]rune(t.Text))))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 3. Detect. A run cancelled while the engine was busy stops here so no
	// transcript is written for it.
	err = p.stage(ctx, observe.StageDetect, func(ctx context.Context, span trace.Span) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Markers = p.stages.Detector.Detect(rep.Transcript.Text)
		span.SetAttributes(attribute.StringSlice("markers", rep.Markers))
		p.metrics.RecordMarkers(ctx, rep.Markers)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("hesitations detected", "count", len(rep.Markers), "markers", []string(rep.Markers))

	fmt.Fprintf(p.out, "Transcription Preview: %s...\n", preview(rep.Transcript.Text))

	// 4. Persist.
	err = p.stage(ctx, observe.StagePersist, func(ctx context.Context, span trace.Span) error {
		path, err := p.stages.Sink.Persist(sink.Record{
			Transcript: rep.Transcript.Text,
			Markers:    rep.Markers,
			AudioPath:  rep.Artifact.Path,
		})
		if err != nil {
			return err
		}
		rep.TranscriptPath = path
		span.SetAttributes(attribute.String("transcript.path", path))
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("run complete",
		"audio", rep.Artifact.Path,
		"transcript", rep.TranscriptPath,
		"interrupted", rep.Artifact.Interrupted,
	)
	return rep, nil
}

// stage runs fn inside a child span, records its duration and counts a
// failure against the stage.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context, trace.Span) error) error {
	ctx, span := observe.StartSpan(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx, span)
	p.metrics.RecordStage(ctx, name, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordStageError(ctx, name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe.Logger(ctx).Error("stage failed", "stage", name, "err", err)
	}
	return err
}

// preview returns at most previewRunes runes of text.
func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes])
}
