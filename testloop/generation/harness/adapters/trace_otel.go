package adapters

import (
	"context"
	"fmt"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracer implements the Tracer interface on the global OpenTelemetry
// tracer provider.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates a tracer named after the harness.
func NewOTelTracer() *OTelTracer {
	return &OTelTracer{tracer: otel.Tracer("testloop.harness")}
}

// StartSpan starts a child span of whatever span ctx carries.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	finish := func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
	return ctx, finish
}

// Event adds an event to the span in ctx.
func (t *OTelTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case int64:
			kvs = append(kvs, attribute.Int64(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		default:
			kvs = append(kvs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return kvs
}

var _ ports.Tracer = (*OTelTracer)(nil)
