package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/queue"
)

// Instruments holds the domain metric instruments for the resilience core.
// Attach them to a breaker registry and queue manager through the hook
// fields on their configs.
type Instruments struct {
	circuitTransitions metric.Int64Counter
	circuitRejections  metric.Int64Counter
	queueAdmitted      metric.Int64Counter
	queueRejected      metric.Int64Counter
	queueWaitMs        metric.Float64Histogram
	taskDurationMs     metric.Float64Histogram
}

// NewInstruments creates the instruments on the given meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var (
		ins Instruments
		err error
	)

	ins.circuitTransitions, err = meter.Int64Counter(
		"backstop.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, err
	}

	ins.circuitRejections, err = meter.Int64Counter(
		"backstop.circuit.rejections",
		metric.WithDescription("Calls rejected because the circuit was open"),
	)
	if err != nil {
		return nil, err
	}

	ins.queueAdmitted, err = meter.Int64Counter(
		"backstop.queue.admitted",
		metric.WithDescription("Tasks admitted to execution"),
	)
	if err != nil {
		return nil, err
	}

	ins.queueRejected, err = meter.Int64Counter(
		"backstop.queue.rejected",
		metric.WithDescription("Tasks rejected by the queue, by reason"),
	)
	if err != nil {
		return nil, err
	}

	ins.queueWaitMs, err = meter.Float64Histogram(
		"backstop.queue.wait_ms",
		metric.WithDescription("Time spent waiting in the queue before admission"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	ins.taskDurationMs, err = meter.Float64Histogram(
		"backstop.task.duration_ms",
		metric.WithDescription("Execution time of admitted tasks"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &ins, nil
}

// RecordCircuitRejection counts a call turned away by an open circuit.
func (i *Instruments) RecordCircuitRejection(service string) {
	i.circuitRejections.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("service", service)))
}

// OnStateChange returns a hook for breaker.Config.OnStateChange.
func (i *Instruments) OnStateChange() func(service string, from, to breaker.State) {
	return func(service string, from, to breaker.State) {
		i.circuitTransitions.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("service", service),
				attribute.String("from", from.String()),
				attribute.String("to", to.String()),
			))
	}
}

// OnAdmit returns a hook for queue.Config.OnAdmit.
func (i *Instruments) OnAdmit() func(service string, p queue.Priority, waited time.Duration) {
	return func(service string, p queue.Priority, waited time.Duration) {
		attrs := metric.WithAttributes(
			attribute.String("service", service),
			attribute.String("priority", p.String()),
		)
		i.queueAdmitted.Add(context.Background(), 1, attrs)
		i.queueWaitMs.Record(context.Background(), float64(waited)/float64(time.Millisecond), attrs)
	}
}

// OnReject returns a hook for queue.Config.OnReject.
func (i *Instruments) OnReject() func(service, reason string) {
	return func(service, reason string) {
		i.queueRejected.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("service", service),
				attribute.String("reason", reason),
			))
	}
}

// OnTaskDone returns a hook for queue.Config.OnTaskDone.
func (i *Instruments) OnTaskDone() func(service string, d time.Duration, err error) {
	return func(service string, d time.Duration, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		i.taskDurationMs.Record(context.Background(),
			float64(d)/float64(time.Millisecond),
			metric.WithAttributes(
				attribute.String("service", service),
				attribute.String("outcome", outcome),
			))
	}
}
