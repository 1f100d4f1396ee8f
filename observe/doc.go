// Package observe wires up telemetry for the resilience core: an
// OpenTelemetry tracer and meter with pluggable exporters, a zap structured
// logger, and domain instruments for circuit transitions and queue
// admissions.
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "backstop",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.1},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info", Environment: "prod"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer obs.Shutdown(ctx)
package observe
