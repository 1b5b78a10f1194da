package emit

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter converts session events into OpenTelemetry spans.
//
// Each event becomes an immediately-ended span (events are points in time,
// not durations) named after the event type, with the session id, sequence
// number, and stage attached as attributes. Error events set the span status
// to Error.
//
// Usage:
//
//	tracer := otel.Tracer("tutorgraph-go")
//	emitter := emit.NewOTelEmitter(tracer)
//
// Wire up a trace provider in application code the usual way:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter over the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as a span.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), string(event.Type),
		trace.WithTimestamp(event.Timestamp))
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", event.SessionID),
		attribute.Int64("sequence_no", event.Seq),
	)
	if event.Stage != "" {
		span.SetAttributes(attribute.String("stage", event.Stage))
	}

	if event.Type == TypeError {
		msg := "session error"
		if info, ok := event.Payload.(ErrorInfo); ok && info.Message != "" {
			msg = info.Message
		}
		span.SetStatus(codes.Error, msg)
		span.RecordError(errors.New(msg))
	}
}
