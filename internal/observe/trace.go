package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/hesitate"

// SessionKey is the span attribute carrying the capture session ID.
const SessionKey = attribute.Key("session.id")

type sessionCtxKey struct{}

// Tracer returns the hesitate tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named after a pipeline stage, or "pipeline.run" for
// the root. When ctx carries a session ID the span is tagged with it. The
// caller must end the span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if id := SessionID(ctx); id != "" {
		opts = append(opts, trace.WithAttributes(SessionKey.String(id)))
	}
	return Tracer().Start(ctx, name, opts...)
}

// WithSession returns a copy of ctx bound to the capture session id. The
// active span, if any, is tagged as well, so the run span picks up the ID
// once capture has produced one.
func WithSession(ctx context.Context, id string) context.Context {
	trace.SpanFromContext(ctx).SetAttributes(SessionKey.String(id))
	return context.WithValue(ctx, sessionCtxKey{}, id)
}

// SessionID returns the session ID bound by [WithSession], or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionCtxKey{}).(string)
	return id
}

// Logger returns the default logger enriched with the run's trace_id and
// span_id and, after capture, its session_id.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if id := SessionID(ctx); id != "" {
		l = l.With(slog.String("session_id", id))
	}
	return l
}
