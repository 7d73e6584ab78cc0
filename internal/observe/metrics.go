// Package observe provides application-wide observability primitives for
// hesitate: OpenTelemetry metrics, tracing, trace-aware structured logging,
// and the optional Prometheus endpoint served during a run.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from /metrics while a capture is in progress. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hesitate metrics.
const meterName = "github.com/MrWong99/hesitate"

// Pipeline stage names used as the "stage" attribute and as span names.
const (
	StageRecord     = "recorder.record"
	StageTranscribe = "transcription.transcribe"
	StageDetect     = "hesitation.detect"
	StagePersist    = "sink.persist"
)

// Run status values for [Metrics.RecordRun].
const (
	StatusOK          = "ok"
	StatusInterrupted = "interrupted"
	StatusError       = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks speech-to-text transcription latency. Use with
	// attribute.String("engine", ...).
	STTDuration metric.Float64Histogram

	// StageDuration tracks per-stage wall time. Use with
	// attribute.String("stage", ...).
	StageDuration metric.Float64Histogram

	// --- Capture ---

	// ChunksCaptured counts audio chunks appended to capture buffers.
	ChunksCaptured metric.Int64Counter

	// CaptureSeconds accumulates captured audio time.
	CaptureSeconds metric.Float64Counter

	// --- Detection ---

	// MarkersDetected counts detected hesitation markers. Use with
	// attribute.String("marker", ...).
	MarkersDetected metric.Int64Counter

	// --- Outcomes ---

	// StageErrors counts stage failures. Use with attribute.String("stage", ...).
	StageErrors metric.Int64Counter

	// Runs counts pipeline runs by outcome. Use with
	// attribute.String("status", ...).
	Runs metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Batch
// transcription of a long capture can take minutes, so the tail is wide.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("hesitate.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("hesitate.stage.duration",
		metric.WithDescription("Wall time of each pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ChunksCaptured, err = m.Int64Counter("hesitate.capture.chunks",
		metric.WithDescription("Total audio chunks captured."),
	); err != nil {
		return nil, err
	}
	if met.CaptureSeconds, err = m.Float64Counter("hesitate.capture.seconds",
		metric.WithDescription("Total audio time captured."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.MarkersDetected, err = m.Int64Counter("hesitate.markers.detected",
		metric.WithDescription("Total hesitation markers detected by marker."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("hesitate.stage.errors",
		metric.WithDescription("Total pipeline stage failures by stage."),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("hesitate.runs",
		metric.WithDescription("Total pipeline runs by status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCapture records the chunks and audio seconds of one finished capture.
func (m *Metrics) RecordCapture(ctx context.Context, chunks int, seconds float64) {
	m.ChunksCaptured.Add(ctx, int64(chunks))
	m.CaptureSeconds.Add(ctx, seconds)
}

// RecordSTT records one transcription latency sample for engine.
func (m *Metrics) RecordSTT(ctx context.Context, engine string, seconds float64) {
	m.STTDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("engine", engine)),
	)
}

// RecordStage records the wall time of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordMarkers increments the marker counter once per detected marker.
func (m *Metrics) RecordMarkers(ctx context.Context, markers []string) {
	for _, mk := range markers {
		m.MarkersDetected.Add(ctx, 1,
			metric.WithAttributes(attribute.String("marker", mk)),
		)
	}
}

// RecordStageError is a convenience method that records a stage error
// counter increment.
func (m *Metrics) RecordStageError(ctx context.Context, stage string) {
	m.StageErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordRun records the outcome of one pipeline run.
func (m *Metrics) RecordRun(ctx context.Context, status string) {
	m.Runs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
