package mounting

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/mutation"
)

// Default tracer name for commit spans.
const defaultTracerName = "viewdiff/mounting"

func defaultTracer() trace.Tracer {
	return otel.Tracer(defaultTracerName)
}

// startCommitSpan opens the span of one commit. The span ends in
// endCommitSpan.
func startCommitSpan(ctx context.Context, tracer trace.Tracer, surface string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "viewdiff.commit",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("viewdiff.surface", surface)),
	)
}

func endCommitSpan(span trace.Span, tx *Transaction, err error) {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		if code := errors.Code(err); code != "" {
			span.SetAttributes(attribute.String("viewdiff.error_code", code))
		}
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(
		attribute.Int64("viewdiff.transaction", int64(tx.Number)),
		attribute.Int("viewdiff.mutations", len(tx.Mutations)),
		attribute.Int("viewdiff.creates", tx.Mutations.Count(mutation.TypeCreate)),
		attribute.Int("viewdiff.deletes", tx.Mutations.Count(mutation.TypeDelete)),
		attribute.Float64("viewdiff.diff_ms", float64(tx.DiffDuration.Microseconds())/1000),
	)
	span.SetStatus(codes.Ok, "")
}
