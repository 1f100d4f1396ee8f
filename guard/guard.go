package guard

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/queue"
)

// Config configures a Guard.
type Config struct {
	// Breakers gates calls per service. Required.
	Breakers *breaker.Registry

	// Queues bounds concurrency per service. Required.
	Queues *queue.Manager

	// Tracer wraps each guarded call in a span. Default: no-op.
	Tracer trace.Tracer
}

// Guard is the guarded-call entry point for application code.
type Guard struct {
	breakers *breaker.Registry
	queues   *queue.Manager
	tracer   trace.Tracer
}

// New creates a Guard. Breakers and Queues must be non-nil.
func New(config Config) *Guard {
	if config.Breakers == nil || config.Queues == nil {
		panic("guard: Breakers and Queues are required")
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}

	return &Guard{
		breakers: config.Breakers,
		queues:   config.Queues,
		tracer:   tracer,
	}
}

// Execute runs op against service at the given priority.
//
// It fails fast with *breaker.CircuitOpenError when the circuit is open,
// otherwise admits through the queue. If op actually runs, its outcome is
// reported to the breaker and its error is returned unchanged. Queue
// rejections and caller cancellation are returned without touching the
// breaker.
func (g *Guard) Execute(ctx context.Context, service string, p queue.Priority, op func(context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, "backstop.execute",
		trace.WithAttributes(
			attribute.String("backstop.service", service),
			attribute.String("backstop.priority", p.String()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	if err := g.breakers.Allow(service); err != nil {
		span.SetAttributes(attribute.String("backstop.outcome", "circuit_open"))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	ran := false
	err := g.queues.Enqueue(ctx, service, p, func(ctx context.Context) error {
		ran = true
		return op(ctx)
	})

	if !ran {
		// Queue-layer rejection or cancellation before promotion; the
		// dependency was never exercised, so the breaker learns nothing.
		// Free the half-open probe slot if Allow granted it.
		g.breakers.ReleaseProbe(service)
		span.SetAttributes(attribute.String("backstop.outcome", "rejected"))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err != nil {
		g.breakers.RecordFailure(ctx, service, err)
		span.SetAttributes(attribute.String("backstop.outcome", "failure"))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	g.breakers.RecordSuccess(service)
	span.SetAttributes(attribute.String("backstop.outcome", "success"))
	span.SetStatus(codes.Ok, "")
	return nil
}
