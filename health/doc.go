// Package health exposes liveness and readiness checks for the resilience
// core. BreakerChecker and QueueChecker inspect the circuit registry and
// queue manager, an Aggregator fans checks out concurrently, and HTTP
// handlers serve the standard probe endpoints.
//
//	agg := health.NewAggregator()
//	agg.Register("circuits", health.NewBreakerChecker(breakers))
//	agg.Register("queues", health.NewQueueChecker(queues))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
package health
