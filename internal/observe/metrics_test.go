package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// intSumByAttr returns the value of the int64 sum data point whose attribute
// key equals value, and whether it was found.
func intSumByAttr(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"hesitate.stt.duration", m.STTDuration},
		{"hesitate.stage.duration", m.StageDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 42)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordCapture(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCapture(ctx, 16, 1.024)
	m.RecordCapture(ctx, 4, 0.256)

	rm := collect(t, reader)

	chunks := findMetric(rm, "hesitate.capture.chunks")
	if chunks == nil {
		t.Fatal("chunks metric not found")
	}
	if got := chunks.Data.(metricdata.Sum[int64]).DataPoints[0].Value; got != 20 {
		t.Errorf("chunks = %d, want 20", got)
	}

	secs := findMetric(rm, "hesitate.capture.seconds")
	if secs == nil {
		t.Fatal("seconds metric not found")
	}
	sum, ok := secs.Data.(metricdata.Sum[float64])
	if !ok {
		t.Fatal("seconds metric is not a float64 sum")
	}
	if got := sum.DataPoints[0].Value; got < 1.279 || got > 1.281 {
		t.Errorf("seconds = %f, want 1.28", got)
	}
}

func TestRecordSTT_EngineAttribute(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSTT(ctx, "deepgram", 0.8)

	rm := collect(t, reader)
	met := findMetric(rm, "hesitate.stt.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	dp := met.Data.(metricdata.Histogram[float64]).DataPoints[0]
	if v, ok := dp.Attributes.Value("engine"); !ok || v.AsString() != "deepgram" {
		t.Errorf("engine attribute = %v, want deepgram", v)
	}
}

func TestRecordMarkers(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordMarkers(ctx, []string{"um", "like"})
	m.RecordMarkers(ctx, []string{"um"})
	m.RecordMarkers(ctx, nil)

	rm := collect(t, reader)
	if got, ok := intSumByAttr(t, rm, "hesitate.markers.detected", "marker", "um"); !ok || got != 2 {
		t.Errorf("um = %d (found=%v), want 2", got, ok)
	}
	if got, ok := intSumByAttr(t, rm, "hesitate.markers.detected", "marker", "like"); !ok || got != 1 {
		t.Errorf("like = %d (found=%v), want 1", got, ok)
	}
}

func TestRecordStageError(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStageError(ctx, StageTranscribe)

	rm := collect(t, reader)
	if got, ok := intSumByAttr(t, rm, "hesitate.stage.errors", "stage", StageTranscribe); !ok || got != 1 {
		t.Errorf("stage errors = %d (found=%v), want 1", got, ok)
	}
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, StatusOK)
	m.RecordRun(ctx, StatusOK)
	m.RecordRun(ctx, StatusInterrupted)

	rm := collect(t, reader)
	if got, ok := intSumByAttr(t, rm, "hesitate.runs", "status", StatusOK); !ok || got != 2 {
		t.Errorf("ok runs = %d (found=%v), want 2", got, ok)
	}
	if got, ok := intSumByAttr(t, rm, "hesitate.runs", "status", StatusInterrupted); !ok || got != 1 {
		t.Errorf("interrupted runs = %d (found=%v), want 1", got, ok)
	}
	if _, ok := intSumByAttr(t, rm, "hesitate.runs", "status", StatusError); ok {
		t.Error("unexpected error data point")
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
