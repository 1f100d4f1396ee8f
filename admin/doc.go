// Package admin serves the operational HTTP surface of the resilience
// core: queue and circuit inspection, pause/resume/clear and trip/reset
// controls, Prometheus metrics, and the health probe endpoints.
//
// All /admin routes require authentication, either an API key in the
// X-API-Key header or an HMAC-signed bearer token. Probe and metrics
// endpoints are unauthenticated.
//
//	srv := admin.NewServer(admin.Config{
//	    Addr:     ":9090",
//	    APIKeys:  []string{os.Getenv("ADMIN_API_KEY")},
//	    Breakers: breakers,
//	    Queues:   queues,
//	})
//	go srv.Start(ctx)
package admin
