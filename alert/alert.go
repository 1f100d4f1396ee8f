package alert

import "context"

// Severity indicates how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert types for the external dependencies the platform calls out to.
// TypeExternalService is the catch-all for custom service names.
const (
	TypeAIGeneration    = "ai_generation_failure"
	TypeEcommerceAPI    = "ecommerce_api_failure"
	TypeAdsGoogle       = "ads_google_failure"
	TypeAdsMeta         = "ads_meta_failure"
	TypeExternalService = "external_service_failure"
)

// Well-known service identifiers.
const (
	ServiceAIGeneration      = "ai-generation"
	ServiceEcommercePlatform = "ecommerce-platform"
	ServiceAdsGoogle         = "ads-google"
	ServiceAdsMeta           = "ads-meta"
)

var serviceTypes = map[string]string{
	ServiceAIGeneration:      TypeAIGeneration,
	ServiceEcommercePlatform: TypeEcommerceAPI,
	ServiceAdsGoogle:         TypeAdsGoogle,
	ServiceAdsMeta:           TypeAdsMeta,
}

// TypeForService maps a service identifier to its alert type. The mapping is
// total: unrecognized names map to TypeExternalService.
func TypeForService(service string) string {
	if t, ok := serviceTypes[service]; ok {
		return t
	}
	return TypeExternalService
}

// Alert is a single notification about a dependency.
type Alert struct {
	Type     string
	Severity Severity
	Message  string
	Metadata map[string]any
}

// Dispatcher delivers alerts to an external destination.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations should honor cancellation/deadlines.
// - Errors: delivery failure is returned, never panicked.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Alert) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, a Alert) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, a Alert) error {
	return f(ctx, a)
}
