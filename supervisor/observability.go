package supervisor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// tracer and restarts read from whatever global TracerProvider/MeterProvider
// the embedding application has installed via otel.SetTracerProvider and
// otel.SetMeterProvider. Neither is configured here: with no provider
// installed, both fall back to the OpenTelemetry no-op implementations, so
// this package never pulls in an exporter or collector dependency of its
// own, matching u-bmc/pkg/state's EnableTracing-off behaviour.
var (
	tracer   = otel.Tracer("github.com/oakhollow/supervise/supervisor")
	restarts metric.Int64Counter
)

func init() {
	restarts, _ = otel.Meter("github.com/oakhollow/supervise/supervisor").
		Int64Counter("supervisor.subject.restarts",
			metric.WithDescription("number of recovery attempts made by the restart engine, by outcome"))
}

// traceRecover opens a span around one recover() call and tags it with the
// faulted subject's identifier, the supervisor's current strategy, and the
// outcome once recoverFn returns.
func traceRecover(ctx context.Context, s *Supervisor, id Identifier, recoverFn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "supervisor.recover",
		trace.WithAttributes(
			attribute.String("subject.id", id.String()),
			attribute.String("strategy", s.strategy.String()),
		))
	defer span.End()

	err := recoverFn(ctx)

	outcome := "recovered"
	if err != nil {
		outcome = "escalated"
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	restarts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("strategy", s.strategy.String()),
			attribute.String("outcome", outcome),
		))
	return err
}
